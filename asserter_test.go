// asserter_test.go -- shared test helper
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package ohash

import "testing"

type asserter func(cond bool, msg string, args ...interface{})

func newAsserter(t *testing.T) asserter {
	return func(cond bool, msg string, args ...interface{}) {
		if !cond {
			t.Helper()
			t.Fatalf(msg, args...)
		}
	}
}
