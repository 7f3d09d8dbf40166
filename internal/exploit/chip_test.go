package exploit

import (
	"testing"
	"time"
)

func TestParseChipConstsCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		want ChipConstants
		ok   bool
	}{
		{"salina preset", "picochipconst salina", SalinaConsts, true},
		{"salina2 preset", "picochipconst salina2", Salina2Consts, true},
		{"unknown preset", "picochipconst salina3", ChipConstants{}, false},
		{
			"explicit hex",
			"picochipconst 6 320 384",
			ChipConstants{FillerMultiplier: 6, PostProcess: 800 * time.Millisecond, PwnDelay: 900 * time.Microsecond},
			true,
		},
		{"bad hex", "picochipconst zz 320 384", ChipConstants{}, false},
		{"multiplier overflow", "picochipconst 100 320 384", ChipConstants{}, false},
		{"too few args", "picochipconst", ChipConstants{}, false},
		{"too many args", "picochipconst 6 320 384 0", ChipConstants{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseChipConstsCommand(tt.cmd)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
