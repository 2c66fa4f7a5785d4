package pagination

import "testing"

func TestWindowNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   Window
		want Window
	}{
		{"zero values", Window{}, Window{Skip: 0, Take: DefaultTake}},
		{"negative skip", Window{Skip: -5, Take: 10}, Window{Skip: 0, Take: 10}},
		{"take over max", Window{Skip: 20, Take: 5000}, Window{Skip: 20, Take: MaxTake}},
		{"valid window", Window{Skip: 20, Take: 10}, Window{Skip: 20, Take: 10}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
