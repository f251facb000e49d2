package form

import (
	"errors"
	"fmt"
	"testing"
)

func TestTagStore_SourceNormalizationIsIdempotent(t *testing.T) {
	var s TagStore
	tag, err := s.Add("https://www.Example.com/path?x=1", KindSource)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if tag.Value != "example.com" {
		t.Errorf("expected example.com, got %q", tag.Value)
	}

	_, err = s.Add("example.com", KindSource)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if s.Count(KindSource) != 1 || s.Sources[0] != "example.com" {
		t.Errorf("expected exactly one tag example.com, got %v", s.Sources)
	}
}

func TestTagStore_LimitPerKind(t *testing.T) {
	cases := map[Kind][]string{
		KindSource: {"a.com", "b.org", "c.net", "d.io"},
		KindTopic:  {"ai", "climate", "finance", "sports"},
	}
	for kind, values := range cases {
		t.Run(string(kind), func(t *testing.T) {
			var s TagStore
			for _, v := range values[:3] {
				if _, err := s.Add(v, kind); err != nil {
					t.Fatalf("add %q: %v", v, err)
				}
			}
			if !s.Full(kind) {
				t.Error("expected store to be full")
			}
			_, err := s.Add(values[3], kind)
			if !errors.Is(err, ErrLimitReached) {
				t.Errorf("expected ErrLimitReached, got %v", err)
			}
			if s.Count(kind) != 3 {
				t.Errorf("expected 3 tags, got %d", s.Count(kind))
			}
		})
	}
}

func TestTagStore_SourceRejections(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"   ", ErrEmpty},
		{"not a domain", ErrInvalidDomain},
		{"lemonde.fr", ErrNonEnglishSource},
	}
	for _, tt := range tests {
		var s TagStore
		if _, err := s.Add(tt.in, KindSource); !errors.Is(err, tt.want) {
			t.Errorf("Add(%q) = %v, want %v", tt.in, err, tt.want)
		}
		if s.Count(KindSource) != 0 {
			t.Errorf("Add(%q) must not store anything", tt.in)
		}
	}
}

func TestTagStore_TopicDuplicateIsCaseInsensitive(t *testing.T) {
	var s TagStore
	if _, err := s.Add(" Robotics!! ", KindTopic); err != nil {
		t.Fatal(err)
	}
	if s.Topics[0] != "robotics" {
		t.Errorf("expected cleaned topic, got %q", s.Topics[0])
	}
	if _, err := s.Add("ROBOTICS", KindTopic); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestTagStore_AddBatchSkipsDuplicatesSilently(t *testing.T) {
	var s TagStore
	added, err := s.AddBatch("forbes.com, forbes.com,\n\nwired.com,https://forbes.com/x", KindSource)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("expected 2 added tags, got %d (%v)", len(added), added)
	}
	if s.Sources[0] != "forbes.com" || s.Sources[1] != "wired.com" {
		t.Errorf("unexpected order %v", s.Sources)
	}
}

func TestTagStore_AddBatchReturnsFirstActionableError(t *testing.T) {
	var s TagStore
	added, err := s.AddBatch("bad domain, spiegel.de, wired.com", KindSource)
	if !errors.Is(err, ErrInvalidDomain) {
		t.Errorf("expected first error to be ErrInvalidDomain, got %v", err)
	}
	if len(added) != 1 || added[0].Value != "wired.com" {
		t.Errorf("expected later valid fragment to be added, got %v", added)
	}
}

func TestTagStore_AddBatchStopsAtLimit(t *testing.T) {
	var s TagStore
	added, err := s.AddBatch("ai,ml,robotics,space,energy", KindTopic)
	if !errors.Is(err, ErrLimitReached) {
		t.Errorf("expected ErrLimitReached, got %v", err)
	}
	if len(added) != 3 {
		t.Errorf("expected 3 added, got %d", len(added))
	}
}

func TestTagStore_RemoveIsIdempotent(t *testing.T) {
	var s TagStore
	s.Add("forbes.com", KindSource)
	s.Add("wired.com", KindSource)

	s.Remove("https://www.FORBES.com", KindSource)
	s.Remove("forbes.com", KindSource)
	s.Remove("never-added.com", KindSource)

	if s.Count(KindSource) != 1 || s.Sources[0] != "wired.com" {
		t.Errorf("expected only wired.com left, got %v", s.Sources)
	}
}

func TestTagStore_UnknownKind(t *testing.T) {
	var s TagStore
	if _, err := s.Add("x", Kind("other")); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if s.Count(Kind("other")) != 0 {
		t.Error("expected zero count for unknown kind")
	}
}

func TestTagMessage(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
		want string
	}{
		{nil, KindSource, ""},
		{ErrEmpty, KindTopic, ""},
		{ErrInvalidDomain, KindSource, "Please enter a valid website domain"},
		{ErrLimitReached, KindSource, "Maximum 3 sources allowed"},
		{ErrLimitReached, KindTopic, "You can select maximum 3 topics"},
		{ErrDuplicate, KindSource, "This source is already added"},
		{fmt.Errorf("wrapped: %w", ErrDuplicate), KindSource, "This source is already added"},
	}
	for _, tt := range tests {
		if got := TagMessage(tt.err, tt.kind); got != tt.want {
			t.Errorf("TagMessage(%v, %s) = %q, want %q", tt.err, tt.kind, got, tt.want)
		}
	}
}
