// Package tests contains database-backed test cases for the repository and
// business flow packages to avoid circular imports
package tests

import (
	"testing"

	testingutil "github.com/tourvanir/pricing-core/testing"
)

// withTestDB provisions a throwaway database for one test function and skips
// the test when no PostgreSQL server is reachable.
func withTestDB(t *testing.T, fn func(t *testing.T, testDB *testingutil.TestDB)) {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			t.Logf("warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	fn(t, testDB)
}
