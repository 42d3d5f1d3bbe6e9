package ocr

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelLine, false},
		{"line", LevelLine, false},
		{"word", LevelWord, false},
		{"block", LevelBlock, false},
		{"paragraph", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	o := New(Options{})
	if o.Name() != "ocr" {
		t.Errorf("Name: got %s", o.Name())
	}
	if o.opts.Language != "eng" || o.opts.Level != LevelLine {
		t.Errorf("defaults: %+v", o.opts)
	}
	if got := New(Options{Language: "deu", Level: LevelWord}).opts; got.Language != "deu" || got.Level != LevelWord {
		t.Errorf("explicit options overwritten: %+v", got)
	}
}
