package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestID_StringRoundTrip(t *testing.T) {
	id := IDFromContent("round trip")
	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("ParseID() error = %v", err)
	}
	if parsed != id {
		t.Errorf("ParseID(String()) = %d, want %d", parsed, id)
	}

	if _, err := ParseID("not-a-number"); err == nil {
		t.Error("ParseID() error = nil, want error")
	}
}

func TestChunk_ID(t *testing.T) {
	a := Chunk{Source: "docs/a.txt", Index: 0, Content: "hello"}
	b := Chunk{Source: "docs/b.txt", Index: 0, Content: "hello"}
	c := Chunk{Source: "docs/a.txt", Index: 1, Content: "hello"}

	if a.ID() != a.ID() {
		t.Error("Chunk.ID() is not deterministic")
	}
	if a.ID() == b.ID() {
		t.Error("chunks from different sources share an ID")
	}
	if a.ID() == c.ID() {
		t.Error("chunks at different positions share an ID")
	}
}

func TestChunk_Metadata(t *testing.T) {
	c := Chunk{Source: "docs/a.txt", Index: 3, Offset: 2400, Content: "x"}
	md := c.Metadata()

	want := map[string]string{
		MetadataSource: "docs/a.txt",
		MetadataIndex:  "3",
		MetadataOffset: "2400",
	}
	for k, v := range want {
		if md[k] != v {
			t.Errorf("Metadata()[%q] = %q, want %q", k, md[k], v)
		}
	}
}

func TestDateAnnotation_Value(t *testing.T) {
	tests := []struct {
		name string
		ann  DateAnnotation
		want string
	}{
		{
			name: "parsed wins",
			ann:  DateAnnotation{Text: "March 12, 2024", Parsed: "2024-03-12T00:00:00Z", Raw: "ignored"},
			want: "2024-03-12T00:00:00Z",
		},
		{
			name: "raw fallback",
			ann:  DateAnnotation{Text: "someday", Raw: "someday"},
			want: "someday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ann.Value(); got != tt.want {
				t.Errorf("Value() = %q, want %q", got, tt.want)
			}
		})
	}
}
