package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// serverFlags mirrors the value flags the server config owns.
var serverFlags = []string{
	"-l", "-a", "-d", "-s", "-t", "-i", "-r", "-m", "-w",
	"-storage", "-root", "-chunk", "-max-upload", "-smtp-host", "-log-level",
}

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		boolFlags []string
		want      []string
	}{
		{
			name: "config file flags belong to another consumer",
			args: []string{"-c", "devicegate.json", "-storage", "minio", "-config=alt.json"},
			want: []string{"-storage", "minio"},
		},
		{
			name: "durations in both forms",
			args: []string{"-t", "2m", "-i=15s", "-r", "48h"},
			want: []string{"-t", "2m", "-i=15s", "-r", "48h"},
		},
		{
			name: "negative duration needs the equals form",
			args: []string{"-w", "-1s", "-w=-1s"},
			want: []string{"-w", "-w=-1s"},
		},
		{
			name:      "dev echo does not swallow the next token",
			args:      []string{"-dev-echo", "stray", "-l", ":8080"},
			boolFlags: []string{"-dev-echo"},
			want:      []string{"-dev-echo", "-l", ":8080"},
		},
		{
			name:      "dev echo followed by a value flag",
			args:      []string{"-dev-echo", "-max-upload", "1048576"},
			boolFlags: []string{"-dev-echo"},
			want:      []string{"-dev-echo", "-max-upload", "1048576"},
		},
		{
			name:      "dev echo with explicit value",
			args:      []string{"-dev-echo=false", "-log-level", "debug"},
			boolFlags: []string{"-dev-echo"},
			want:      []string{"-dev-echo=false", "-log-level", "debug"},
		},
		{
			name: "dev echo is dropped unless declared",
			args: []string{"-dev-echo", "-a", ":50051"},
			want: []string{"-a", ":50051"},
		},
		{
			name: "storage root with spaces stays one argument",
			args: []string{"-root", "/srv/device gate/files", "-chunk", "4096"},
			want: []string{"-root", "/srv/device gate/files", "-chunk", "4096"},
		},
		{
			name: "value flag at the end keeps the bare flag",
			args: []string{"-a", ":50051", "-d"},
			want: []string{"-a", ":50051", "-d"},
		},
		{
			name: "repeated flag keeps order so the last one wins",
			args: []string{"-storage", "fs", "-storage", "s3"},
			want: []string{"-storage", "fs", "-storage", "s3"},
		},
		{
			name: "unknown flags and positionals are dropped",
			args: []string{"-x", "1", "--smtp-host=mail", "serve", "-smtp-host", "smtp.example.com"},
			want: []string{"-smtp-host", "smtp.example.com"},
		},
		{
			name: "no args",
			args: []string{},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, serverFlags, tt.boolFlags...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "short form next to server flags", args: []string{"-storage", "fs", "-c", "/etc/devicegate.json", "-dev-echo"}, want: "/etc/devicegate.json"},
		{name: "long form with equals", args: []string{"-config=/etc/devicegate.json", "-t", "2m"}, want: "/etc/devicegate.json"},
		{name: "last one wins", args: []string{"-c", "base.json", "-config", "override.json"}, want: "override.json"},
		{name: "server flags only", args: []string{"-l", ":8080", "-dev-echo"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = append([]string{"devicegate"}, tt.args...)
			assert.Equal(t, tt.want, JsonConfigFlags())
		})
	}
}
