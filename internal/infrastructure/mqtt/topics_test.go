package mqtt

import "testing"

func TestReplyTopic(t *testing.T) {
	tests := []struct {
		topic     string
		wantReply string
		wantOK    bool
	}{
		{"/dev1/in/params", "/dev1/out/info", true},
		{"site/boiler/in/params", "site/boiler/out/info", true},
		{"/in/params", "/out/info", true},
		{"/dev1/in/setup", "", false},
		{"/dev1/in/params/extra", "", false},
		{"/dev1/in/paramsx", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			reply, ok := ReplyTopic(tt.topic)
			if ok != tt.wantOK || reply != tt.wantReply {
				t.Errorf("ReplyTopic(%q) = (%q, %v), want (%q, %v)", tt.topic, reply, ok, tt.wantReply, tt.wantOK)
			}
		})
	}
}
