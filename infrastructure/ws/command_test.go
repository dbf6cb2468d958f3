package ws

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Command
	}{
		{
			name:  "directed message",
			frame: "/send_to 102 Hi there",
			want:  Command{Kind: CommandDirect, Target: "102", Body: "Hi there"},
		},
		{
			name:  "directed message empty body",
			frame: "/send_to 102 ",
			want:  Command{Kind: CommandDirect, Target: "102", Body: ""},
		},
		{
			name:  "directed message without body degrades to raw",
			frame: "/send_to 102",
			want:  Command{Kind: CommandRaw, Body: "/send_to 102"},
		},
		{
			name:  "directed message without target degrades to raw",
			frame: "/send_to ",
			want:  Command{Kind: CommandRaw, Body: "/send_to "},
		},
		{
			name:  "group message",
			frame: "/group hello-A",
			want:  Command{Kind: CommandGroup, Body: "hello-A"},
		},
		{
			name:  "broadcast",
			frame: "/broadcast everyone",
			want:  Command{Kind: CommandBroadcast, Body: "everyone"},
		},
		{
			name:  "plain text",
			frame: "Hello",
			want:  Command{Kind: CommandRaw, Body: "Hello"},
		},
		{
			name:  "slash without known prefix",
			frame: "/sendto 102 Hi",
			want:  Command{Kind: CommandRaw, Body: "/sendto 102 Hi"},
		},
		{
			name:  "empty frame",
			frame: "",
			want:  Command{Kind: CommandRaw, Body: ""},
		},
		{
			name:  "prefix must be followed by a space",
			frame: "/group",
			want:  Command{Kind: CommandRaw, Body: "/group"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommand([]byte(tt.frame))
			if got != tt.want {
				t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.frame, got, tt.want)
			}
		})
	}
}
