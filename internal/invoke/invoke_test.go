package invoke

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub executables are shell scripts")
	}
}

// writeStub creates an executable shell script in a temp directory.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	stub := filepath.Join(t.TempDir(), "sass")
	if err := os.WriteFile(stub, []byte(script), 0755); err != nil {
		t.Fatalf("cannot create stub binary: %v", err)
	}
	return stub
}

func TestCheckExecutable(t *testing.T) {
	skipOnWindows(t)

	tmpDir := t.TempDir()
	executable := filepath.Join(tmpDir, "exe")
	plain := filepath.Join(tmpDir, "plain")
	if err := os.WriteFile(executable, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(plain, []byte("#!/bin/sh\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "executable_file", path: executable},
		{name: "missing_execute_bit", path: plain, wantErr: true},
		{name: "directory", path: tmpDir, wantErr: true},
		{name: "missing", path: filepath.Join(tmpDir, "missing"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckExecutable(tt.path)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("CheckExecutable() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrNotExecutable) {
				t.Fatalf("expected ErrNotExecutable, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.path) {
				t.Errorf("error should name the path, got: %v", err)
			}
		})
	}
}

func TestInvoke_PassesArgumentsAndStreams(t *testing.T) {
	skipOnWindows(t)

	stub := writeStub(t, `#!/bin/sh
for a in "$@"; do echo "arg:$a"; done
read line
echo "stdin:$line"
echo "oops" >&2
exit 0
`)

	var stdout, stderr bytes.Buffer
	inv := &Invoker{
		Stdin:  strings.NewReader("from caller\n"),
		Stdout: &stdout,
		Stderr: &stderr,
	}

	res, err := inv.Invoke(context.Background(), stub, []string{"input.scss", "output.css", "--style=compressed"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}

	want := "arg:input.scss\narg:output.css\narg:--style=compressed\nstdin:from caller\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
	if stderr.String() != "oops\n" {
		t.Errorf("stderr = %q, want %q", stderr.String(), "oops\n")
	}
}

func TestInvoke_ExitCodes(t *testing.T) {
	skipOnWindows(t)

	for _, code := range []int{0, 1, 2, 65} {
		stub := writeStub(t, "#!/bin/sh\nexit "+strconv.Itoa(code)+"\n")

		res, err := (&Invoker{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}).Invoke(context.Background(), stub, nil)
		if err != nil {
			t.Fatalf("Invoke() error = %v, want nil for exit %d", err, code)
		}
		if res.ExitCode != code {
			t.Errorf("ExitCode = %d, want %d", res.ExitCode, code)
		}
	}
}

func TestInvoke_WorkingDirectoryAndEnv(t *testing.T) {
	skipOnWindows(t)

	stub := writeStub(t, "#!/bin/sh\npwd\necho \"$SASSRUN_TEST_VALUE\"\n")
	dir := t.TempDir()

	var stdout bytes.Buffer
	inv := &Invoker{Stdout: &stdout, Stderr: &bytes.Buffer{}, Dir: dir, Env: []string{"SASSRUN_TEST_VALUE=42"}}
	if _, err := inv.Invoke(context.Background(), stub, nil); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	gotDir, _ := filepath.EvalSymlinks(lines[0])
	wantDir, _ := filepath.EvalSymlinks(dir)
	if gotDir != wantDir {
		t.Errorf("working dir = %q, want %q", gotDir, wantDir)
	}
	if lines[1] != "42" {
		t.Errorf("env value = %q, want 42", lines[1])
	}
}

func TestInvoke_NotExecutable(t *testing.T) {
	skipOnWindows(t)

	path := filepath.Join(t.TempDir(), "sass")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := (&Invoker{}).Invoke(context.Background(), path, nil)
	if !errors.Is(err, ErrNotExecutable) {
		t.Errorf("expected ErrNotExecutable, got: %v", err)
	}
}

func TestInvoke_SpawnError(t *testing.T) {
	skipOnWindows(t)

	// Executable bit set but no valid interpreter
	stub := writeStub(t, "#!/nonexistent/interpreter\n")

	_, err := (&Invoker{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}).Invoke(context.Background(), stub, nil)
	if !errors.Is(err, ErrSpawn) {
		t.Errorf("expected ErrSpawn, got: %v", err)
	}
}

func TestInvoke_Interrupted(t *testing.T) {
	skipOnWindows(t)

	stub := writeStub(t, "#!/bin/sh\necho started\nexec sleep 30\n")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	inv := &Invoker{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, WaitDelay: time.Second}

	start := time.Now()
	_, err := inv.Invoke(ctx, stub, nil)
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Invoke() took %v after cancellation", elapsed)
	}
}

func TestInvoke_Cancelled(t *testing.T) {
	skipOnWindows(t)

	stub := writeStub(t, "#!/bin/sh\nexit 0\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Invoker{}).Invoke(ctx, stub, nil)
	if !errors.Is(err, ErrInterrupted) {
		t.Errorf("expected ErrInterrupted, got: %v", err)
	}
}
