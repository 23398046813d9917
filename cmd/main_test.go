// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/xkilldash9x/kite-autologin/internal/observability"
	"github.com/xkilldash9x/kite-autologin/pkg/autologin"
)

// resetForTest resets package state and keeps log output inside the test's temp dir.
func resetForTest(t *testing.T) {
	t.Helper()

	cfgFile = ""
	requestToken = autologin.RequestToken
	t.Cleanup(func() { requestToken = autologin.RequestToken })

	t.Setenv("KITELOGIN_LOGGER_LOG_FILE", filepath.Join(t.TempDir(), "login.log"))
	t.Setenv("KITELOGIN_LOGGER_LEVEL", "fatal")

	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
}

// executeCommand runs a pristine command tree and returns its stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
