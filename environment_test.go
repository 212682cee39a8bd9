package weave_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/weave"
	"github.com/junioryono/weave/internal/testutil"
)

// resourceAssembly declares disposable singletons.
type resourceAssembly struct {
	weave.Assembly

	Log     testutil.DisposalLog
	FailErr error
}

func (a *resourceAssembly) Database(ctx context.Context) (*testutil.TestDisposable, error) {
	return weave.Define(ctx, a, "database", weave.Definition[*testutil.TestDisposable]{
		Lifetime: weave.Singleton,
		Factory: func(context.Context) (*testutil.TestDisposable, error) {
			return testutil.NewTestDisposableWithError("database", &a.Log, a.FailErr), nil
		},
	})
}

func (a *resourceAssembly) Cache(ctx context.Context) (*testutil.TestContextDisposable, error) {
	return weave.Define(ctx, a, "cache", weave.Definition[*testutil.TestContextDisposable]{
		Lifetime: weave.Singleton,
		Factory: func(ctx context.Context) (*testutil.TestContextDisposable, error) {
			// The cache needs the database first, so it is created later.
			if _, err := a.Database(ctx); err != nil {
				return nil, err
			}
			return testutil.NewTestContextDisposable("cache", &a.Log), nil
		},
	})
}

func (a *resourceAssembly) Request(ctx context.Context) (*testutil.TestDisposable, error) {
	return weave.Define(ctx, a, "request", weave.Definition[*testutil.TestDisposable]{
		Factory: func(context.Context) (*testutil.TestDisposable, error) {
			return testutil.NewTestDisposable("request", &a.Log), nil
		},
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("generated id", func(t *testing.T) {
		t.Parallel()

		env := weave.New()
		_, err := uuid.Parse(env.ID())
		assert.NoError(t, err)
		assert.NotEqual(t, env.ID(), weave.New().ID())
	})

	t.Run("explicit id", func(t *testing.T) {
		t.Parallel()

		env := weave.New(weave.WithID("checkout"), nil)
		assert.Equal(t, "checkout", env.ID())
	})

	t.Run("logger receives debug records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		env := weave.New(weave.WithLogger(logger), weave.WithID("logged"))

		family, err := weave.Obtain[testutil.FamilyAssembly](env)
		require.NoError(t, err)
		_, err = family.Parent(context.Background())
		require.NoError(t, err)

		out := buf.String()
		assert.Contains(t, out, "assembly created")
		assert.Contains(t, out, "instance constructed")
		assert.Contains(t, out, "key=FamilyAssembly.parent")
		assert.Contains(t, out, "resolution pass completed")
		assert.Contains(t, out, "environment=logged")
	})

	t.Run("default fault handler logs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		env := weave.New(weave.WithLogger(logger))

		screens, err := weave.Obtain[screenAssembly](env)
		require.NoError(t, err)
		_, err = screens.Screen(context.Background())
		require.Error(t, err)

		assert.Contains(t, buf.String(), "dependency resolution fault")
		assert.Contains(t, buf.String(), "placeholder_test.go")
	})
}

func TestObtain(t *testing.T) {
	t.Parallel()

	t.Run("one assembly per type", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)

		first := testutil.Obtain[testutil.FamilyAssembly](t, env)
		second := testutil.Obtain[testutil.FamilyAssembly](t, env)
		testutil.AssertSameInstance(t, first, second)

		bound, err := first.Env()
		require.NoError(t, err)
		assert.Same(t, env, bound)

		assert.Equal(t, weave.KeyOf[testutil.FamilyAssembly]("parent"), first.Key("parent"))
	})

	t.Run("sibling shares the environment", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		hubs := testutil.Obtain[testutil.HubAssembly](t, env)

		spokes, err := weave.Sibling[testutil.SpokeAssembly](hubs)
		require.NoError(t, err)
		testutil.AssertSameInstance(t, testutil.Obtain[testutil.SpokeAssembly](t, env), spokes)

		_, err = weave.Sibling[testutil.SpokeAssembly](&testutil.HubAssembly{})
		assert.ErrorIs(t, err, weave.ErrNoEnvironment)
	})

	t.Run("nil environment", func(t *testing.T) {
		t.Parallel()

		_, err := weave.Obtain[testutil.FamilyAssembly](nil)
		assert.ErrorIs(t, err, weave.ErrNilEnvironment)

		testutil.AssertPanicsWithError(t, weave.ErrNilEnvironment, func() {
			weave.MustObtain[testutil.FamilyAssembly](nil)
		})
	})
}

func TestWithin(t *testing.T) {
	t.Parallel()

	t.Run("pass membership", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		other, _ := testutil.NewEnvironment(t)

		var inner context.Context
		err := weave.Within(context.Background(), env, func(ctx context.Context) error {
			inner = ctx
			assert.True(t, weave.InPass(ctx, env))
			assert.False(t, weave.InPass(ctx, other))

			// Nested calls join the running pass.
			return weave.Within(ctx, env, func(nested context.Context) error {
				assert.True(t, weave.InPass(nested, env))
				return nil
			})
		})
		require.NoError(t, err)

		assert.False(t, weave.InPass(context.Background(), env))
		assert.False(t, weave.InPass(inner, env), "a retained context does not outlive its pass")
	})

	t.Run("passes of different environments nest", func(t *testing.T) {
		t.Parallel()

		envA, _ := testutil.NewEnvironment(t)
		envB, _ := testutil.NewEnvironment(t)

		err := weave.Within(context.Background(), envA, func(ctx context.Context) error {
			return weave.Within(ctx, envB, func(ctx context.Context) error {
				assert.True(t, weave.InPass(ctx, envA))
				assert.True(t, weave.InPass(ctx, envB))
				return nil
			})
		})
		require.NoError(t, err)
	})

	t.Run("error is returned", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		err := weave.Within(context.Background(), env, func(context.Context) error {
			return testutil.ErrTest
		})
		assert.ErrorIs(t, err, testutil.ErrTest)
	})

	t.Run("arguments", func(t *testing.T) {
		t.Parallel()

		assert.ErrorIs(t, weave.Within(context.Background(), nil, func(context.Context) error { return nil }), weave.ErrNilEnvironment)

		env, _ := testutil.NewEnvironment(t)
		assert.NoError(t, weave.Within(context.Background(), env, nil))
	})
}

func TestClose(t *testing.T) {
	t.Parallel()

	t.Run("disposes singletons in reverse creation order", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		resources := testutil.Obtain[resourceAssembly](t, env)

		cache, err := resources.Cache(context.Background())
		require.NoError(t, err)
		db, err := resources.Database(context.Background())
		require.NoError(t, err)
		request, err := resources.Request(context.Background())
		require.NoError(t, err)

		require.NoError(t, env.Close(context.Background()))

		assert.Equal(t, []string{"cache", "database"}, resources.Log.Names())
		assert.True(t, db.IsDisposed())
		assert.True(t, cache.IsDisposed())
		assert.True(t, cache.WasDisposedWithContext())
		assert.False(t, request.IsDisposed(), "graph-scoped instances are owned by the caller")

		assert.True(t, env.IsClosed())
		assert.Equal(t, weave.Stats{}, env.Stats())
	})

	t.Run("aggregates disposal errors", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		resources := testutil.Obtain[resourceAssembly](t, env)
		resources.FailErr = testutil.ErrDisposal

		_, err := resources.Database(context.Background())
		require.NoError(t, err)

		err = env.Close(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, testutil.ErrDisposal)

		disposalErr := testutil.AssertErrorType[weave.DisposalError](t, err)
		assert.Equal(t, "environment", disposalErr.Context)
	})

	t.Run("cancelled context stops disposal", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		resources := testutil.Obtain[resourceAssembly](t, env)

		cache, err := resources.Cache(context.Background())
		require.NoError(t, err)
		cache.SetDisposeTime(time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err = env.Close(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, cache.IsDisposed())
	})

	t.Run("second close is a no-op", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		require.NoError(t, env.Close(context.Background()))
		assert.NoError(t, env.Close(context.Background()))
	})

	t.Run("inside a pass", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		err := weave.Within(context.Background(), env, func(ctx context.Context) error {
			return env.Close(ctx)
		})
		assert.ErrorIs(t, err, weave.ErrCloseInsidePass)
		assert.False(t, env.IsClosed())
	})

	t.Run("within after close", func(t *testing.T) {
		t.Parallel()

		env, faults := testutil.NewEnvironment(t)
		require.NoError(t, env.Close(context.Background()))

		err := weave.Within(context.Background(), env, func(context.Context) error { return nil })
		testutil.AssertClosed(t, err)
		testutil.AssertFault(t, faults, weave.ErrEnvironmentClosed)
	})
}

func TestStats(t *testing.T) {
	t.Parallel()

	env, _ := testutil.NewEnvironment(t)
	sessions := testutil.Obtain[testutil.SessionAssembly](t, env)
	testutil.Obtain[testutil.FamilyAssembly](t, env)

	shared, err := sessions.Shared(context.Background())
	require.NoError(t, err)
	weak, err := sessions.Session(context.Background())
	require.NoError(t, err)
	require.NoError(t, weave.Substitute(sessions, "other", func(context.Context) (int, error) { return 1, nil }))

	stats := env.Stats()
	assert.Equal(t, 2, stats.Assemblies)
	assert.Equal(t, 1, stats.Singletons)
	assert.Equal(t, 1, stats.WeakSingletons)
	assert.Equal(t, 1, stats.LiveWeakSingletons)
	assert.Equal(t, 1, stats.Substitutions)

	assert.NotNil(t, shared)
	assert.NotNil(t, weak)
}

func TestDefaultEnvironment(t *testing.T) {
	original := weave.Default()
	t.Cleanup(func() {
		weave.SetDefault(original)
	})

	t.Run("created lazily once", func(t *testing.T) {
		weave.SetDefault(nil)

		first := weave.Default()
		require.NotNil(t, first)
		assert.Same(t, first, weave.Default())
	})

	t.Run("replaced", func(t *testing.T) {
		env, _ := testutil.NewEnvironment(t)
		weave.SetDefault(env)

		family, err := weave.ObtainDefault[testutil.FamilyAssembly]()
		require.NoError(t, err)

		bound, err := family.Env()
		require.NoError(t, err)
		assert.Same(t, env, bound)
	})
}
