package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

//
// -----------------------------------------------------------------------------
// Shared fixtures
// -----------------------------------------------------------------------------

// minimalSpecYAML returns a spec that passes validateSpec.
func minimalSpecYAML() []byte {
	return []byte(`package: shop
types:
  - name: OrderService
  - name: Clock
    proxy: TracedClock
`)
}

// shopSource is a package exercising every signature shape the generator
// understands.
const shopSource = `package shop

import (
	"context"

	"github.com/sghaida/oditrace/tracer"
)

type Order struct{ ID string }

type OrderService struct{}

func (s *OrderService) Place(ctx context.Context, sku string, qty int) (*Order, error) {
	return &Order{ID: sku}, nil
}

func (s *OrderService) Ship(id string) *tracer.Future { return tracer.Resolved(id) }

func (s *OrderService) Tag(_ string, labels ...string) {}

func (s *OrderService) ClassName() string { return "ignored" }

func (s *OrderService) internal() {}

type Clock struct{}

func (Clock) Now() int64 { return 0 }

type Box[T any] struct{ v T }
`

// writeShopPackage writes shopSource into a fresh directory and returns it.
func writeShopPackage(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTempFile(t, dir, "shop.go", shopSource, 0o644)
	return dir
}

//
// -----------------------------------------------------------------------------
// Small helpers
// -----------------------------------------------------------------------------

// writeTempFile writes a file under dir/name and returns its full path.
func writeTempFile(t *testing.T, dir, name, content string, perm os.FileMode) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), perm))
	return p
}

// readFileString reads a file and returns its contents as string (fatal on error).
func readFileString(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(b)
}

// requirePanicContains asserts fn panics and the panic message contains wantSub.
func requirePanicContains(t *testing.T, wantSub string, fn func()) {
	t.Helper()

	defer func() {
		recovered := recover()
		require.NotNil(t, recovered)

		var message string
		switch v := recovered.(type) {
		case error:
			message = v.Error()
		case string:
			message = v
		default:
			message = fmt.Sprintf("%v", v)
		}
		require.Contains(t, message, wantSub)
	}()

	fn()
}

//
// -----------------------------------------------------------------------------
// writeFileAtomic() seam helpers
// -----------------------------------------------------------------------------

// fakeTempFile is a controllable file-like object for writeFileAtomic tests.
type fakeTempFile struct {
	fileName string
	writeErr error
	closeErr error
}

func (f *fakeTempFile) Name() string { return f.fileName }

func (f *fakeTempFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *fakeTempFile) Close() error { return f.closeErr }

// restoreWriteFileSeams puts the real file operations back after the test.
func restoreWriteFileSeams(t *testing.T) {
	t.Helper()
	origCreate, origRemove, origChmod, origRename := createTempFile, removeFile, chmodFile, renameFile
	t.Cleanup(func() {
		createTempFile = origCreate
		removeFile = origRemove
		chmodFile = origChmod
		renameFile = origRename
	})
}
