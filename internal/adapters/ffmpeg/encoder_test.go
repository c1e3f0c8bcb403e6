package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/ewilliams-labs/visualizer/internal/core/ports"
)

func testJob(dir string) ports.EncodeJob {
	return ports.EncodeJob{
		FramesDir:    filepath.Join(dir, "frames"),
		FramePattern: "frame-%06d.png",
		AudioPath:    filepath.Join(dir, "audio.mp3"),
		FPS:          30,
		Width:        1280,
		Height:       720,
		OutputPath:   filepath.Join(dir, "out.mp4"),
	}
}

func TestArgs(t *testing.T) {
	job := testJob("/work")
	job.FPS = 29.97

	want := []string{
		"-y",
		"-framerate", "29.97",
		"-i", "/work/frames/frame-%06d.png",
		"-i", "/work/audio.mp3",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-vf", "scale=1280:720,pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-r", "29.97",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-preset", "ultrafast",
		"-crf", "23",
		"-shortest",
		"/work/out.mp4",
	}
	if got := Args(job); !reflect.DeepEqual(got, want) {
		t.Errorf("Args() =\n%v\nwant\n%v", got, want)
	}
}

func TestArgs_OddDimensionsArePadded(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          string
	}{
		{name: "even", width: 64, height: 36, want: "scale=64:36,pad=ceil(iw/2)*2:ceil(ih/2)*2"},
		{name: "odd width", width: 641, height: 360, want: "scale=641:360,pad=ceil(iw/2)*2:ceil(ih/2)*2"},
		{name: "odd both", width: 1, height: 1, want: "scale=1:1,pad=ceil(iw/2)*2:ceil(ih/2)*2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := testJob("/work")
			job.Width, job.Height = tt.width, tt.height
			args := Args(job)
			i := slices.Index(args, "-vf")
			if i < 0 || i+1 >= len(args) {
				t.Fatalf("Args() has no video filter: %v", args)
			}
			if args[i+1] != tt.want {
				t.Errorf("-vf = %q, want %q", args[i+1], tt.want)
			}
			if slices.Contains(args, "-s") {
				t.Errorf("Args() must not force an output size: %v", args)
			}
		})
	}
}

func TestNewEncoder_Binary(t *testing.T) {
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit path wins", in: "/usr/local/bin/ffmpeg", want: "/usr/local/bin/ffmpeg"},
		{name: "env fallback", in: "", want: "/opt/ffmpeg/bin/ffmpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewEncoder(tt.in).Binary(); got != tt.want {
				t.Errorf("Binary() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Setenv("FFMPEG_PATH", "")
	if got := NewEncoder("").Binary(); got != "ffmpeg" {
		t.Errorf("Binary() = %q, want ffmpeg", got)
	}
}

// fakeFFmpeg writes a shell script standing in for ffmpeg.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func TestEncode(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	// Record the arguments and create the last one as the output file.
	bin := fakeFFmpeg(t, `echo "$@" > `+argsFile+`
for last; do :; done
echo video > "$last"`)

	job := testJob(dir)
	if err := NewEncoder(bin).Encode(context.Background(), job); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		t.Fatalf("output not written: %v", err)
	}
	recorded, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got, want := strings.TrimSpace(string(recorded)), strings.Join(Args(job), " "); got != want {
		t.Errorf("ffmpeg called with %q, want %q", got, want)
	}
}

func TestEncode_Failure(t *testing.T) {
	dir := t.TempDir()
	bin := fakeFFmpeg(t, `for last; do :; done
echo partial > "$last"
echo "Unknown encoder 'libx264'" >&2
exit 1`)

	job := testJob(dir)
	err := NewEncoder(bin).Encode(context.Background(), job)
	if err == nil {
		t.Fatal("Encode() expected error")
	}
	if !strings.Contains(err.Error(), "Unknown encoder") {
		t.Errorf("error %q should carry ffmpeg stderr", err)
	}
	if _, statErr := os.Stat(job.OutputPath); !os.IsNotExist(statErr) {
		t.Errorf("partial output should be removed, stat err = %v", statErr)
	}
}

func TestEncode_InvalidJob(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ports.EncodeJob)
	}{
		{name: "no audio", mutate: func(j *ports.EncodeJob) { j.AudioPath = "" }},
		{name: "no output", mutate: func(j *ports.EncodeJob) { j.OutputPath = "" }},
		{name: "zero fps", mutate: func(j *ports.EncodeJob) { j.FPS = 0 }},
		{name: "zero width", mutate: func(j *ports.EncodeJob) { j.Width = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := testJob(t.TempDir())
			tt.mutate(&job)
			if err := NewEncoder("/nonexistent/ffmpeg").Encode(context.Background(), job); err == nil {
				t.Fatal("Encode() expected error")
			}
		})
	}
}
