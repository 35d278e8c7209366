package placeholder

import (
	"errors"
	"reflect"
	"testing"

	"planner-cli/internal/model"
)

func TestIsPlaceholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry model.Entry
		want  bool
	}{
		{name: "canonical id", entry: model.Entry{Key: "42"}, want: false},
		{name: "shadow flag on real key", entry: model.Entry{Key: "42", Shadow: true}, want: true},
		{name: "reserved prefix", entry: model.Entry{Key: ShadowKey(0)}, want: true},
		{name: "empty", entry: model.Entry{Key: ""}, want: true},
		{name: "zero", entry: model.Entry{Key: "0"}, want: true},
		{name: "leading zero", entry: model.Entry{Key: "007"}, want: true},
		{name: "signed", entry: model.Entry{Key: "+7"}, want: true},
		{name: "negative", entry: model.Entry{Key: "-7"}, want: true},
		{name: "padded", entry: model.Entry{Key: " 7"}, want: true},
		{name: "word", entry: model.Entry{Key: "item-abc"}, want: true},
		{name: "overflow", entry: model.Entry{Key: "99999999999999999999"}, want: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsPlaceholder(tt.entry); got != tt.want {
				t.Fatalf("IsPlaceholder(%+v) = %v, want %v", tt.entry, got, tt.want)
			}
		})
	}
}

func TestFilterReal_PreservesOrderAndDropsShadows(t *testing.T) {
	in := []model.Entry{
		{Key: "3"},
		{Key: ShadowKey(0)},
		{Key: "1"},
		{Key: "9", Shadow: true},
		{Key: "2"},
	}
	got := FilterReal(in)
	want := []model.Entry{{Key: "3"}, {Key: "1"}, {Key: "2"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FilterReal:\n got: %#v\nwant: %#v", got, want)
	}
	if len(in) != 5 {
		t.Fatalf("input mutated: %#v", in)
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("17")
	if err != nil || id != 17 {
		t.Fatalf("ParseID(17) = %v, %v", id, err)
	}

	_, err = ParseID(ShadowKey(3))
	var iie InvalidIdentityError
	if !errors.As(err, &iie) {
		t.Fatalf("expected InvalidIdentityError, got %v", err)
	}
	if iie.Key != ShadowKey(3) {
		t.Fatalf("unexpected key in error: %q", iie.Key)
	}
}

func TestIDs_SkipsPlaceholders(t *testing.T) {
	got := IDs([]model.Entry{{Key: "5"}, {Key: ShadowKey(1)}, {Key: "4"}})
	if want := []model.ID{5, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs = %v, want %v", got, want)
	}
}

func TestShadowOf(t *testing.T) {
	t.Parallel()
	key := ShadowOf(42)
	if !IsPlaceholder(model.Entry{Key: key}) {
		t.Fatalf("%q should be a placeholder without the shadow flag", key)
	}
	if _, err := ParseID(key); err == nil {
		t.Fatalf("ParseID(%q) should fail", key)
	}
	if id, ok := ShadowSubject(key); !ok || id != 42 {
		t.Fatalf("ShadowSubject(%q) = %d, %v", key, id, ok)
	}
	for _, k := range []string{"42", ShadowKey(42), ShadowPrefix + ":007", ShadowPrefix + ":"} {
		if _, ok := ShadowSubject(k); ok {
			t.Fatalf("ShadowSubject(%q) should fail", k)
		}
	}
}
