package ui

import (
	"html/template"
	"testing"
)

func TestTemplatesEmbedded(t *testing.T) {
	names := []string{
		"base.html",
		"login.html",
		"dashboard.html",
		"calendar.html",
		"cell_info.html",
		"node_info.html",
		"about.html",
	}
	for _, name := range names {
		if _, err := templateFS.Open("templates/" + name); err != nil {
			t.Fatalf("expected embedded template %s, got error: %v", name, err)
		}
		if name != "base.html" && templates[name] == nil {
			t.Errorf("template set %s not parsed", name)
		}
	}
}

func TestAttrFunc(t *testing.T) {
	attr := funcMap["attr"].(func(string, string) template.HTMLAttr)
	tests := []struct {
		name, value string
		want        template.HTMLAttr
	}{
		{name: "calendarCellName", value: "0-1", want: `calendarCellName="0-1"`},
		{name: "elementID", value: `a"b`, want: `elementID="a&#34;b"`},
		{name: "onclick", value: "x", want: ""},
		{name: `x" y`, value: "z", want: ""},
		{name: "", value: "z", want: ""},
	}
	for _, tt := range tests {
		if got := attr(tt.name, tt.value); got != tt.want {
			t.Errorf("attr(%q, %q) = %q, want %q", tt.name, tt.value, got, tt.want)
		}
	}
}

func TestCSSColorFunc(t *testing.T) {
	cssColor := funcMap["cssColor"].(func(string) template.CSS)
	for in, want := range map[string]template.CSS{
		"#ccc":             "#ccc",
		"blue":             "blue",
		"rgb(0, 128, 255)": "rgb(0, 128, 255)",
		"red; x: expr":     "transparent",
		"url(javascript:)": "transparent",
	} {
		if got := cssColor(in); got != want {
			t.Errorf("cssColor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSafeNext(t *testing.T) {
	for in, want := range map[string]string{
		"":                      "/",
		"/experiments/calendar": "/experiments/calendar",
		"//evil.example":        "/",
		"/\\evil.example":       "/",
		"https://evil.example":  "/",
	} {
		if got := safeNext(in); got != want {
			t.Errorf("safeNext(%q) = %q, want %q", in, got, want)
		}
	}
}
