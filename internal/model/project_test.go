package model

import (
	"context"
	"errors"
	"testing"
)

// fakeResolver counts namespace lookups and can be made to fail.
type fakeResolver struct {
	calls int
	err   error
}

func (r *fakeResolver) Namespaces(_ context.Context, _ string) ([]Namespace, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return testNamespaces, nil
}

// TestProjectNamespacesLazy tests that resolution happens exactly once.
func TestProjectNamespacesLazy(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{}
	project := NewProject("exwiki", "ex.example.org")

	for i := 0; i < 3; i++ {
		namespaces, err := project.Namespaces(context.Background(), resolver)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(namespaces) != len(testNamespaces) {
			t.Fatalf("got %d namespaces, want %d", len(namespaces), len(testNamespaces))
		}
	}

	if resolver.calls != 1 {
		t.Errorf("resolver called %d times, want 1", resolver.calls)
	}
}

// TestProjectNamespacesRetryAfterError tests that a failed resolution does
// not latch the project into a resolved state.
func TestProjectNamespacesRetryAfterError(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{err: errors.New("api down")}
	project := NewProject("exwiki", "ex.example.org")

	if _, err := project.Namespaces(context.Background(), resolver); err == nil {
		t.Fatal("expected error")
	}

	resolver.err = nil
	if _, err := project.Namespaces(context.Background(), resolver); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if resolver.calls != 2 {
		t.Errorf("resolver called %d times, want 2", resolver.calls)
	}
}

// TestNewProjectWithNamespaces tests the pre-resolved constructor.
func TestNewProjectWithNamespaces(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{}
	project := NewProjectWithNamespaces("exwiki", "ex.example.org", testNamespaces)

	if _, err := project.Namespaces(context.Background(), resolver); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver called %d times, want 0", resolver.calls)
	}
}
