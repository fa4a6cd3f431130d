package process

import (
	"context"
	"strings"
	"testing"
)

func TestShellRunnerRun(t *testing.T) {
	tests := []struct {
		name        string
		command     string
		wantSuccess bool
		wantOutput  string
		wantErrPart string
	}{
		{
			name:        "stdout captured",
			command:     "echo Started.",
			wantSuccess: true,
			wantOutput:  "Started.",
		},
		{
			name:        "stderr used when stdout empty",
			command:     "echo 'Container hll-geofences-basic Started' 1>&2",
			wantSuccess: true,
			wantOutput:  "Container hll-geofences-basic Started",
		},
		{
			name:        "no output sentinel",
			command:     "true",
			wantSuccess: true,
			wantOutput:  NoOutput,
		},
		{
			name:        "non-zero exit",
			command:     "echo 'no configuration file provided' 1>&2; exit 14",
			wantSuccess: false,
			wantOutput:  "no configuration file provided",
			wantErrPart: "no configuration file provided",
		},
		{
			name:        "missing binary",
			command:     "definitely-not-a-real-binary-xyz",
			wantSuccess: false,
			wantErrPart: "failed",
		},
		{
			name:        "empty command",
			command:     "   ",
			wantSuccess: false,
			wantOutput:  NoOutput,
			wantErrPart: "empty",
		},
	}

	runner := NewShellRunner("", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runner.Run(context.Background(), tt.command)

			if res.Success != tt.wantSuccess {
				t.Fatalf("Success = %v, want %v (err: %v)", res.Success, tt.wantSuccess, res.Err)
			}
			if tt.wantOutput != "" && res.Output != tt.wantOutput {
				t.Errorf("Output = %q, want %q", res.Output, tt.wantOutput)
			}
			if tt.wantSuccess && res.Err != nil {
				t.Errorf("unexpected error: %v", res.Err)
			}
			if !tt.wantSuccess {
				if res.Err == nil {
					t.Fatal("expected error on failure")
				}
				if !strings.Contains(res.Err.Error(), tt.wantErrPart) {
					t.Errorf("error %q does not contain %q", res.Err, tt.wantErrPart)
				}
			}
		})
	}
}

func TestShellRunnerIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewShellRunner("", nil).Run(ctx, "echo done")
	if !res.Success || res.Output != "done" {
		t.Fatalf("expected command to run despite cancelled context, got %+v", res)
	}
}

func TestShellRunnerWorkDir(t *testing.T) {
	dir := t.TempDir()

	res := NewShellRunner(dir, nil).Run(context.Background(), "pwd")
	if !res.Success {
		t.Fatalf("pwd failed: %v", res.Err)
	}
	if !strings.HasSuffix(res.Output, dir[strings.LastIndex(dir, "/"):]) {
		t.Errorf("pwd = %q, want it to end in %q", res.Output, dir)
	}
}
