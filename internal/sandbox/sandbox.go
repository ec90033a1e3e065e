// Package sandbox builds and runs the restricted-execution command used
// to dispatch external thumbnailer helpers. When bwrap is discoverable
// on PATH the helper runs under it; otherwise it is executed directly.
package sandbox

import (
	"context"
	"os"
	"os/exec"
)

// Dispatch runs argv[0] with argv[1:], sandboxed under bwrap when
// available and not disabled, binding thumbDir (read-write, so the
// helper can write its temp output) and sourcePath (read-only). The
// child inherits stdio; only its exit status is reported.
func Dispatch(ctx context.Context, argv []string, thumbDir, sourcePath string, disableSandbox bool) error {
	if len(argv) == 0 {
		return nil
	}

	var cmd *exec.Cmd
	if !disableSandbox {
		if bwrapPath, err := exec.LookPath("bwrap"); err == nil {
			cmd = exec.CommandContext(ctx, bwrapPath, bwrapArgs(thumbDir, sourcePath, argv)...)
		}
	}
	if cmd == nil {
		cmd = exec.CommandContext(ctx, argv[0], argv[1:]...)
	}

	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Available reports whether bwrap is on PATH, for callers that want to
// log the degradation decision (spec.md §9: "Sandbox degradation").
func Available() bool {
	_, err := exec.LookPath("bwrap")
	return err == nil
}

// bwrapArgs builds the bwrap argument prefix from spec.md §4.8, then
// appends "--" and the templated argv.
func bwrapArgs(thumbDir, sourcePath string, argv []string) []string {
	args := []string{
		"--ro-bind", "/usr", "/usr",
		"--ro-bind-try", "/etc/ld.so.cache", "/etc/ld.so.cache",
		"--ro-bind-try", "/etc/alternatives", "/etc/alternatives",
	}

	for _, dir := range []string{"/bin", "/lib", "/lib64", "/sbin"} {
		info, err := os.Lstat(dir)
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target := "/usr" + dir
			args = append(args, "--symlink", target, dir)
		} else {
			args = append(args, "--ro-bind", dir, dir)
		}
	}

	args = append(args,
		"--proc", "/proc",
		"--dev", "/dev",
		"--chdir", "/",
		"--setenv", "GIO_USE_VFS", "local",
		"--unshare-all", "--die-with-parent",
		"--bind", thumbDir, thumbDir,
		"--ro-bind", sourcePath, sourcePath,
		"--",
	)
	return append(args, argv...)
}
