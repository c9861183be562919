package composer

import "testing"

func Test_CheckCitations_CleanBody(t *testing.T) {
	t.Parallel()
	body := `## Goals

The project generates documentation from repository content. [source: README.md#1/3]
No deployment tooling is included. (Information not available in repository)

- Supports text and code retrieval. [source: app/main.py#2/4]

| Component | Responsibility |
|-----------|----------------|
| Chunker   | splits files   |

` + "```python\nprint('uncited code is fine')\n```" + `

Tags may carry sentence punctuation. [source: docs/setup.md#1/1].
`
	if got := CheckCitations(body); len(got) != 0 {
		t.Fatalf("want no violations, got %+v", got)
	}
}

func Test_CheckCitations_FlagsUncitedProse(t *testing.T) {
	t.Parallel()
	body := `## Overview

This sentence has a proper tag. [source: README.md#1/1]
This sentence has no tag at all.
This one cites nothing but claims a lot.
`
	got := CheckCitations(body)
	if len(got) != 2 {
		t.Fatalf("want 2 violations, got %d: %+v", len(got), got)
	}
	if got[0].Line != 4 || got[1].Line != 5 {
		t.Errorf("violation lines = %d, %d; want 4, 5", got[0].Line, got[1].Line)
	}
}

func Test_CheckCitations_MalformedTags(t *testing.T) {
	t.Parallel()
	cases := []string{
		"Claim with a half tag. [source: README.md]",      // missing #seq/total
		"Claim with the wrong keyword. [cite: a.md#1/2]",  // wrong prefix
		"Tag not at end [source: a.md#1/2] trailing text", // tag must terminate the line
	}
	for _, line := range cases {
		if got := CheckCitations(line); len(got) != 1 {
			t.Errorf("want violation for %q, got %+v", line, got)
		}
	}
}

func Test_CheckCitations_FenceStateTracking(t *testing.T) {
	t.Parallel()
	body := "```mermaid\nflowchart TD\n  A --> B\n```\nProse after the fence needs a tag.\n"
	got := CheckCitations(body)
	if len(got) != 1 {
		t.Fatalf("want exactly 1 violation (post-fence prose), got %+v", got)
	}
	if got[0].Line != 5 {
		t.Errorf("violation line = %d, want 5", got[0].Line)
	}
}

func Test_Slug(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in, want string
	}{
		{"Objective & Scope", "objective-scope"},
		{"System Architecture", "system-architecture"},
		{"API Reference", "api-reference"},
		{"  Weird---Name  ", "weird-name"},
		{"", "section"},
		{"&&&", "section"},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
