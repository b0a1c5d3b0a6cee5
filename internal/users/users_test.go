package users

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-signpdf/internal/database"
	"go-signpdf/internal/kv"
	"go-signpdf/internal/utils"
)

func newAccounts() *Accounts {
	return NewAccounts(NewMemoryStore(), kv.NewMemoryStore(), 15*time.Minute)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	a := newAccounts()

	u, err := a.Register(ctx, "Jane Doe", " Jane@Example.com ", "s3cretpass")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", u.Email)
	require.Equal(t, RoleUser, u.Role)
	require.NotEqual(t, "s3cretpass", u.PasswordHash)

	_, err = a.Register(ctx, "Jane Again", "jane@example.com", "otherpass1")
	require.ErrorIs(t, err, ErrEmailTaken)

	got, err := a.Login(ctx, "JANE@example.com", "s3cretpass")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = a.Login(ctx, "jane@example.com", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login(ctx, "nobody@example.com", "s3cretpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login(ctx, "", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	a := newAccounts()
	cases := []struct {
		name, email, password, msg string
	}{
		{"", "a@b.co", "password1", "Please Enter Your Name"},
		{"Al", "a@b.co", "password1", "Name should have between 4 and 30 characters"},
		{"Alice", "", "password1", "Please Enter Your Email"},
		{"Alice", "not-an-email", "password1", "Please Enter a valid Email"},
		{"Alice", "Alice <a@b.co>", "password1", "Please Enter a valid Email"},
		{"Alice", "a@b.co", "", "Please Enter Your Password"},
		{"Alice", "a@b.co", "short", "Password should be greater than 8 characters"},
	}
	for _, c := range cases {
		_, err := a.Register(ctx, c.name, c.email, c.password)
		var ie *InputError
		require.ErrorAs(t, err, &ie, c.msg)
		require.Equal(t, c.msg, ie.Message)
	}
}

func TestUpdateProfileAndPassword(t *testing.T) {
	ctx := context.Background()
	a := newAccounts()
	u, err := a.Register(ctx, "Jane Doe", "jane@example.com", "s3cretpass")
	require.NoError(t, err)
	_, err = a.Register(ctx, "John Doe", "john@example.com", "s3cretpass")
	require.NoError(t, err)

	_, err = a.UpdateProfile(ctx, u.ID, "Jane Roe", "john@example.com")
	require.ErrorIs(t, err, ErrEmailTaken)

	updated, err := a.UpdateProfile(ctx, u.ID, "Jane Roe", "jane.roe@example.com")
	require.NoError(t, err)
	require.Equal(t, "Jane Roe", updated.Name)
	_, err = a.Login(ctx, "jane.roe@example.com", "s3cretpass")
	require.NoError(t, err)
	_, err = a.Login(ctx, "jane@example.com", "s3cretpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.UpdatePassword(ctx, u.ID, "wrong", "newpassword", "newpassword")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = a.UpdatePassword(ctx, u.ID, "s3cretpass", "newpassword", "different")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = a.UpdatePassword(ctx, u.ID, "s3cretpass", "newpassword", "newpassword")
	require.NoError(t, err)
	_, err = a.Login(ctx, "jane.roe@example.com", "newpassword")
	require.NoError(t, err)

	_, err = a.UpdateProfile(ctx, "missing", "Someone", "x@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	a := newAccounts()
	u, err := a.Register(ctx, "Jane Doe", "jane@example.com", "s3cretpass")
	require.NoError(t, err)

	_, _, err = a.StartReset(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)

	token, owner, err := a.StartReset(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, owner.ID)
	require.Len(t, token, 40)

	// only the digest is stored
	found, err := a.KV.Exists(ctx, resetKeyPrefix+token)
	require.NoError(t, err)
	require.False(t, found)

	_, err = a.CompleteReset(ctx, token, "brandnew1", "mismatch")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.CompleteReset(ctx, token, "brandnew1", "brandnew1")
	require.NoError(t, err)
	_, err = a.Login(ctx, "jane@example.com", "brandnew1")
	require.NoError(t, err)

	_, err = a.CompleteReset(ctx, token, "again1234", "again1234")
	require.ErrorIs(t, err, ErrInvalidResetToken)

	token, _, err = a.StartReset(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NoError(t, a.CancelReset(ctx, token))
	_, err = a.CompleteReset(ctx, token, "again1234", "again1234")
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestPasswordResetExpiry(t *testing.T) {
	ctx := context.Background()
	a := NewAccounts(NewMemoryStore(), kv.NewMemoryStore(), time.Nanosecond)
	_, err := a.Register(ctx, "Jane Doe", "jane@example.com", "s3cretpass")
	require.NoError(t, err)
	token, _, err := a.StartReset(ctx, "jane@example.com")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = a.CompleteReset(ctx, token, "brandnew1", "brandnew1")
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	email := utils.GenerateUUID() + "@example.com"
	u := &User{ID: utils.GenerateUUID(), Name: "Store Test", Email: email,
		PasswordHash: "hash", Role: RoleUser, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Create(ctx, u))

	dup := *u
	dup.ID = utils.GenerateUUID()
	require.ErrorIs(t, s.Create(ctx, &dup), ErrEmailTaken)

	got, err := s.FindByEmail(ctx, email)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.True(t, got.CreatedAt.Equal(now))

	got.Name = "Renamed"
	got.UpdatedAt = now.Add(time.Second)
	require.NoError(t, s.Update(ctx, got))
	got, err = s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)

	_, err = s.FindByID(ctx, utils.GenerateUUID())
	require.ErrorIs(t, err, ErrNotFound)
	missing := *u
	missing.ID = utils.GenerateUUID()
	missing.Email = utils.GenerateUUID() + "@example.com"
	require.ErrorIs(t, s.Update(ctx, &missing), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, database.MigratePostgres(ctx, pool))
	testStore(t, NewPostgresStore(pool))
}

func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	ctx := context.Background()
	db, err := database.OpenMySQL(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.MigrateMySQL(ctx, db))
	testStore(t, NewMySQLStore(db))
}
