package ui

import (
	"embed"
	"html"
	"html/template"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
)

//go:embed templates/*
var templateFS embed.FS

var templates = mustParseTemplates()

var (
	attrNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	colorPattern    = regexp.MustCompile(`^(#[0-9A-Fa-f]{3,8}|[A-Za-z]+|(rgb|rgba|hsl|hsla)\([0-9., %]+\))$`)
)

var funcMap = template.FuncMap{
	// attr renders name="value" for attribute names that come from configuration.
	"attr": func(name, value string) template.HTMLAttr {
		if !attrNamePattern.MatchString(name) || strings.HasPrefix(strings.ToLower(name), "on") {
			return ""
		}
		return template.HTMLAttr(name + `="` + html.EscapeString(value) + `"`)
	},
	"cssColor": func(color string) template.CSS {
		if !colorPattern.MatchString(color) {
			return "transparent"
		}
		return template.CSS(color)
	},
	"px": func(n int) template.CSS {
		if n < 0 {
			n = 0
		}
		return template.CSS(strconv.Itoa(n) + "px")
	},
}

func mustParseTemplates() map[string]*template.Template {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}

	base := template.Must(template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html"))

	sets := make(map[string]*template.Template)
	for _, file := range files {
		if file == "templates/base.html" {
			continue
		}
		set := template.Must(base.Clone())
		template.Must(set.ParseFS(templateFS, file))
		sets[strings.TrimPrefix(file, "templates/")] = set
	}
	return sets
}
