package registration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	regrepo "github.com/ovaphlow/pitchfork/service-waitlist-go/internal/registration/repo"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats/entity"
	statsrepo "github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats/repo"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/testutil"
)

type fixture struct {
	db    *sqlx.DB
	svc   *Service
	regs  *regrepo.RegistrationRepo
	stats *statsrepo.StatsRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	regs := regrepo.NewRegistrationRepo(db)
	st := statsrepo.NewStatsRepo(db)
	ctx := context.Background()
	require.NoError(t, regs.EnsureTable(ctx))
	require.NoError(t, st.EnsureTable(ctx))
	return &fixture{db: db, svc: NewService(db, regs, st), regs: regs, stats: st}
}

func (f *fixture) counters(t *testing.T) entity.Stats {
	t.Helper()
	s, err := f.stats.Get(context.Background())
	if err != nil {
		return entity.Stats{}
	}
	return *s
}

func (f *fixture) registrations(t *testing.T) int64 {
	t.Helper()
	n, err := f.regs.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestSubmitStoresNormalizedRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Submit(ctx, SubmitInput{
		Email:         "  A@B.COM ",
		FullName:      " Jane Doe ",
		ClientAddress: "192.0.2.10",
		ClientAgent:   "curl/8.0",
	})
	require.NoError(t, err)
	assert.NotZero(t, reg.ID)

	stored, err := f.regs.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, stored.ID)
	assert.Equal(t, "a@b.com", stored.Email)
	assert.Equal(t, "Jane Doe", stored.FullName)
	require.NotNil(t, stored.ClientAddress)
	assert.Equal(t, "192.0.2.10", *stored.ClientAddress)
	require.NotNil(t, stored.ClientAgent)
	assert.Equal(t, "curl/8.0", *stored.ClientAgent)
	assert.False(t, stored.CreatedAt.IsZero())

	c := f.counters(t)
	assert.Equal(t, int64(1), c.FormSubmissions)
	assert.Zero(t, c.FormErrors)
}

func TestSubmitWithoutClientMetadata(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), SubmitInput{Email: "x@y.io", FullName: "Xi"})
	require.NoError(t, err)

	stored, err := f.regs.GetByEmail(context.Background(), "x@y.io")
	require.NoError(t, err)
	assert.Nil(t, stored.ClientAddress)
	assert.Nil(t, stored.ClientAgent)
}

func TestSubmitDuplicateDoesNotCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, SubmitInput{Email: "dup@example.com", FullName: "First"})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, SubmitInput{Email: " DUP@Example.com", FullName: "Second"})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.False(t, IsValidation(err))

	c := f.counters(t)
	assert.Equal(t, int64(1), c.FormSubmissions)
	assert.Zero(t, c.FormErrors)
	assert.Equal(t, int64(1), f.registrations(t))
}

func TestSubmitValidationFailures(t *testing.T) {
	cases := []struct {
		name  string
		input SubmitInput
		want  error
	}{
		{"missing email", SubmitInput{Email: "   ", FullName: "Jane"}, ErrMissingField},
		{"missing name", SubmitInput{Email: "a@b.co", FullName: ""}, ErrMissingField},
		{"invalid email", SubmitInput{Email: "not-an-email", FullName: "Jane"}, ErrInvalidEmail},
		{"short name", SubmitInput{Email: "a@b.co", FullName: "x"}, ErrNameTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			before := f.counters(t).FormErrors

			_, err := f.svc.Submit(context.Background(), tc.input)
			require.ErrorIs(t, err, tc.want)
			assert.True(t, IsValidation(err))

			c := f.counters(t)
			assert.Equal(t, before+1, c.FormErrors, "error counter increments by exactly one")
			assert.Zero(t, c.FormSubmissions)
			assert.Zero(t, f.registrations(t), "no row for rejected input")
		})
	}
}

func TestSubmitConcurrentSameEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := "race@example.com"
			if i%2 == 0 {
				email = "  RACE@example.COM "
			}
			_, err := f.svc.Submit(ctx, SubmitInput{Email: email, FullName: "Racer"})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicate):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, dup)
	assert.Equal(t, int64(1), f.registrations(t))

	c := f.counters(t)
	assert.Equal(t, int64(1), c.FormSubmissions)
	assert.Zero(t, c.FormErrors)
}

func TestUniqueIndexRejectsRacingInsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, SubmitInput{Email: "a@b.com", FullName: "Jane"})
	require.NoError(t, err)

	// bypass the advisory lookup, as a concurrent writer would
	_, err = f.db.ExecContext(ctx, `INSERT INTO registrations (email, full_name, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)`, "a@b.com", "Other")
	require.Error(t, err)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, e := range []string{"one@x.io", "two@x.io", "three@x.io"} {
		_, err := f.svc.Submit(ctx, SubmitInput{Email: e, FullName: "Name"})
		require.NoError(t, err)
	}

	rows, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "three@x.io", rows[0].Email)
	assert.Equal(t, "one@x.io", rows[2].Email)
}

func TestSubmitSurfacesStorageErrors(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Close())

	_, err := f.svc.Submit(context.Background(), SubmitInput{Email: "a@b.com", FullName: "Jane"})
	require.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.False(t, errors.Is(err, ErrDuplicate))

	_, err = f.svc.Submit(context.Background(), SubmitInput{Email: "bad", FullName: "Jane"})
	require.Error(t, err)
	assert.False(t, IsValidation(err), "a rejection is not reported when its counter was not stored")
}
