package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectNudgeArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"planner"},
			want: []string{"planner"},
		},
		{
			name: "id and direction first",
			in:   []string{"planner", "7", "up"},
			want: []string{"planner", "items", "nudge", "7", "up"},
		},
		{
			name: "after value flag",
			in:   []string{"planner", "--db", "./tmp.sqlite", "12", "down"},
			want: []string{"planner", "--db", "./tmp.sqlite", "items", "nudge", "12", "down"},
		},
		{
			name: "after equals flag",
			in:   []string{"planner", "--db=./tmp.sqlite", "7", "up"},
			want: []string{"planner", "--db=./tmp.sqlite", "items", "nudge", "7", "up"},
		},
		{
			name: "after bool flag",
			in:   []string{"planner", "--pretty", "7", "down"},
			want: []string{"planner", "--pretty", "items", "nudge", "7", "down"},
		},
		{
			name: "non-canonical id not rewritten",
			in:   []string{"planner", "007", "up"},
			want: []string{"planner", "007", "up"},
		},
		{
			name: "unknown direction not rewritten",
			in:   []string{"planner", "7", "left"},
			want: []string{"planner", "7", "left"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"planner", "items", "nudge", "7", "up"},
			want: []string{"planner", "items", "nudge", "7", "up"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectNudgeArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectNudgeArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
