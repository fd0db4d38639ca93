package di_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/oditrace/di"
)

type DB struct{ DSN string }

type UserService struct{ DB *DB }

func newUserService(r *di.Resolver) (any, error) {
	db, err := di.Resolve[*DB](r, "db")
	if err != nil {
		return nil, err
	}
	return &UserService{DB: db}, nil
}

//
// -----------------------------------------------------------------------------
// Bind
// -----------------------------------------------------------------------------

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, di.DependencyKey("db"), di.Key("db"))
}

func TestBind_DefaultsToTransient(t *testing.T) {
	t.Parallel()

	c := di.NewContainer()
	b := c.Bind("db", func(*di.Resolver) (any, error) { return &DB{}, nil })

	assert.Equal(t, di.Key("db"), b.Key())
	assert.Equal(t, di.ScopeTransient, b.Scope())
	assert.Equal(t, di.ScopeSingleton, b.InSingletonScope().Scope())
	assert.Equal(t, di.ScopeTransient, b.InTransientScope().Scope())
}

func TestTryBind_Errors(t *testing.T) {
	t.Parallel()

	c := di.NewContainer()

	_, err := c.TryBind("db", nil)
	assert.ErrorIs(t, err, di.ErrNilConstructor)

	_, err = c.TryBind("db", func(*di.Resolver) (any, error) { return &DB{}, nil })
	require.NoError(t, err)

	_, err = c.TryBind("db", func(*di.Resolver) (any, error) { return &DB{}, nil })
	var dup di.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, di.Key("db"), dup.Key)
	assert.Equal(t, `di: duplicate binding key "db"`, dup.Error())

	assert.Panics(t, func() {
		c.Bind("db", func(*di.Resolver) (any, error) { return &DB{}, nil })
	})
}

func TestBindings_RegistrationOrder(t *testing.T) {
	t.Parallel()

	c := di.NewContainer()
	c.BindValue("a", 1)
	c.BindValue("b", 2)
	c.BindValue("c", 3)

	var keys []di.DependencyKey
	for _, b := range c.Bindings() {
		keys = append(keys, b.Key())
	}
	assert.Equal(t, []di.DependencyKey{"a", "b", "c"}, keys)

	_, ok := c.Binding("b")
	assert.True(t, ok)
	_, ok = c.Binding("z")
	assert.False(t, ok)
}

//
// -----------------------------------------------------------------------------
// Get / Resolve
// -----------------------------------------------------------------------------

func TestGet_TransientAndSingleton(t *testing.T) {
	t.Parallel()

	c := di.NewContainer()
	c.Bind("transient", func(*di.Resolver) (any, error) { return &DB{}, nil })
	c.Bind("singleton", func(*di.Resolver) (any, error) { return &DB{}, nil }).InSingletonScope()

	t1 := di.MustResolve[*DB](c, "transient")
	t2 := di.MustResolve[*DB](c, "transient")
	assert.NotSame(t, t1, t2)

	s1 := di.MustResolve[*DB](c, "singleton")
	s2 := di.MustResolve[*DB](c, "singleton")
	assert.Same(t, s1, s2)
}

func TestResolve_WithDependencies(t *testing.T) {
	t.Parallel()

	c := di.NewContainer()
	db := &DB{DSN: "postgres://"}
	c.BindValue("db", db)
	c.Bind("users", newUserService)

	users, err := di.Resolve[*UserService](c, "users")
	require.NoError(t, err)
	assert.Same(t, db, users.DB)
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	c := di.NewContainer()
	c.BindValue("db", &DB{})
	c.Bind("broken", func(*di.Resolver) (any, error) { return nil, boom })
	c.Bind("users-no-db", func(r *di.Resolver) (any, error) { return di.Resolve[*DB](r, "missing") })

	_, err := di.Resolve[*DB](c, "nope")
	var missing di.MissingBindingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, di.Key("nope"), missing.Key)

	_, err = di.Resolve[*UserService](c, "db")
	var wrong di.WrongTypeError
	require.True(t, errors.As(err, &wrong))
	assert.Equal(t, "*di_test.DB", wrong.GotType)
	assert.Equal(t, "*di_test.UserService", wrong.Want)

	_, err = c.Get("broken")
	var activation di.ActivationError
	require.True(t, errors.As(err, &activation))
	assert.Equal(t, di.Key("broken"), activation.Key)
	assert.ErrorIs(t, err, boom)

	_, err = c.Get("users-no-db")
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, di.Key("missing"), missing.Key)

	assert.Panics(t, func() { di.MustResolve[*DB](c, "nope") })
}

func TestResolve_NilInstance(t *testing.T) {
	t.Parallel()

	c := di.NewContainer()
	c.BindValue("nil", nil)

	_, err := di.Resolve[*DB](c, "nil")
	var wrong di.WrongTypeError
	require.True(t, errors.As(err, &wrong))
	assert.Equal(t, "<nil>", wrong.GotType)
}

func TestResolve_CircularDependency(t *testing.T) {
	t.Parallel()

	c := di.NewContainer()
	c.Bind("a", func(r *di.Resolver) (any, error) { return r.Get("b") }).InSingletonScope()
	c.Bind("b", func(r *di.Resolver) (any, error) { return r.Get("a") })

	_, err := c.Get("a")
	var cycle di.CircularDependencyError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []di.DependencyKey{"a", "b", "a"}, cycle.Path)
	assert.Equal(t, "di: circular dependency a -> b -> a", cycle.Error())
}

func TestGet_SingletonConcurrentConstructsOnce(t *testing.T) {
	t.Parallel()

	var constructed atomic.Int32
	c := di.NewContainer()
	c.Bind("db", func(*di.Resolver) (any, error) {
		constructed.Add(1)
		return &DB{}, nil
	}).InSingletonScope()

	var wg sync.WaitGroup
	results := make([]*DB, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = di.MustResolve[*DB](c, "db")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), constructed.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

//
// -----------------------------------------------------------------------------
// Activation pipeline
// -----------------------------------------------------------------------------

func TestActivation_OrderAndComposition(t *testing.T) {
	t.Parallel()

	c := di.NewContainer()
	var order []string

	stage := func(name string) di.ActivationHandler {
		return func(ctx di.ActivationContext, instance any) (any, error) {
			order = append(order, name)
			db := instance.(*DB)
			return &DB{DSN: db.DSN + "/" + name}, nil
		}
	}

	b := c.Bind("db", func(*di.Resolver) (any, error) { return &DB{DSN: "base"}, nil })
	b.Decorate(stage("decorator"))
	b.OnActivation(stage("first"))
	b.OnActivation(stage("second"))
	b.OnActivation(nil)
	b.Decorate(nil)

	db := di.MustResolve[*DB](c, "db")
	assert.Equal(t, "base/first/second/decorator", db.DSN)
	assert.Equal(t, []string{"first", "second", "decorator"}, order)
}

func TestActivation_SingletonRunsOnce(t *testing.T) {
	t.Parallel()

	c := di.NewContainer()
	calls := 0
	c.Bind("db", func(*di.Resolver) (any, error) { return &DB{}, nil }).
		InSingletonScope().
		OnActivation(func(ctx di.ActivationContext, instance any) (any, error) {
			calls++
			assert.Equal(t, di.ScopeSingleton, ctx.Scope)
			assert.Equal(t, di.Key("db"), ctx.Key)
			return instance, nil
		})

	di.MustResolve[*DB](c, "db")
	di.MustResolve[*DB](c, "db")
	assert.Equal(t, 1, calls)
}

func TestActivation_HandlerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	c := di.NewContainer()
	c.Bind("db", func(*di.Resolver) (any, error) { return &DB{}, nil }).
		InSingletonScope().
		OnActivation(func(di.ActivationContext, any) (any, error) { return nil, boom })

	_, err := c.Get("db")
	assert.ErrorIs(t, err, boom)

	// Failed singleton activations are not cached.
	_, err = c.Get("db")
	assert.ErrorIs(t, err, boom)
}

func TestOnBind_ExistingAndFutureBindings(t *testing.T) {
	t.Parallel()

	c := di.NewContainer()
	c.BindValue("a", 1)

	var seen []di.DependencyKey
	c.OnBind(func(b *di.Binding) { seen = append(seen, b.Key()) })
	c.OnBind(nil)
	c.BindValue("b", 2)

	assert.Equal(t, []di.DependencyKey{"a", "b"}, seen)
}
