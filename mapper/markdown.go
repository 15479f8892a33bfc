package mapper

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/x19-huhr/mybatis/xnode"
)

const scriptOpen = "<script>"

// frontMatter holds the recognized front matter keys. Others are ignored.
type frontMatter struct {
	Namespace     string `yaml:"namespace"`
	ID            string `yaml:"id"`
	Kind          string `yaml:"kind"`
	ParameterType string `yaml:"parameterType"`
	DatabaseID    string `yaml:"databaseId"`
	Description   string `yaml:"description"`
}

// section is the block content between an H2 heading and the next one.
type section struct {
	heading string
	nodes   []ast.Node
}

// ParseMarkdown reads a markdown query document. The H1 heading is the
// title, the code block under "## SQL" is the script, a YAML block under
// "## Parameters" holds sample parameters and "## Test Cases" lists H3
// named cases with YAML bodies.
func ParseMarkdown(r io.Reader, file string) (*Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	meta, body, err := parseFrontMatter(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	source := []byte(body)

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(source))

	title, intro, sections := splitSections(root, source)

	sqlSection, ok := sections["sql"]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSQLSection, file)
	}

	script, ok := firstCodeBlock(sqlSection.nodes, source)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no code block under ## SQL", ErrMissingSQLSection, file)
	}

	el, err := scriptElement(script)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script in %s: %w", file, err)
	}

	id := strings.TrimSpace(meta.ID)
	if id == "" {
		id = idFromTitle(title)
	}

	if id == "" {
		return nil, fmt.Errorf("%w: %s needs a title or an id in front matter", ErrMissingAttribute, file)
	}

	kind, ok := ParseStatementKind(meta.Kind)
	if !ok {
		if meta.Kind != "" {
			return nil, fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidFrontMatter, file, meta.Kind)
		}

		kind = inferKind(el)
	}

	description := strings.TrimSpace(meta.Description)
	if s, ok := sections["description"]; ok {
		description = blockText(s.nodes, source)
	} else if description == "" {
		description = intro
	}

	stmt := &Statement{
		Namespace:     strings.TrimSpace(meta.Namespace),
		ID:            id,
		Kind:          kind,
		ParameterType: strings.TrimSpace(meta.ParameterType),
		DatabaseID:    strings.TrimSpace(meta.DatabaseID),
		Element:       el,
		File:          file,
		Title:         title,
		Description:   description,
	}

	for _, name := range []string{"parameters", "params"} {
		if s, ok := sections[name]; ok {
			if stmt.SampleParams, err = parseSampleParams(s.nodes, source); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}

			break
		}
	}

	for _, name := range []string{"test cases", "tests", "test"} {
		if s, ok := sections[name]; ok {
			if stmt.TestCases, err = parseTestCases(s.nodes, source); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}

			break
		}
	}

	doc := &Document{Namespace: stmt.Namespace, File: file}
	if err := doc.addStatement(stmt); err != nil {
		return nil, err
	}

	return doc, nil
}

// parseFrontMatter splits a leading --- delimited YAML block from content.
func parseFrontMatter(content string) (frontMatter, string, error) {
	var meta frontMatter

	content = strings.ReplaceAll(content, "\r\n", "\n")

	lines := strings.Split(content, "\n")
	if len(lines) < 3 || strings.TrimSpace(lines[0]) != "---" {
		return meta, content, nil
	}

	endIndex := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			endIndex = i
			break
		}
	}

	if endIndex == -1 {
		return meta, "", fmt.Errorf("%w: missing closing ---", ErrInvalidFrontMatter)
	}

	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:endIndex], "\n")), &meta); err != nil {
		return meta, "", fmt.Errorf("%w: %w", ErrInvalidFrontMatter, err)
	}

	return meta, strings.Join(lines[endIndex+1:], "\n"), nil
}

// splitSections walks the top level blocks. It returns the H1 title, the
// text between the title and the first H2, and the H2 sections keyed by
// lower-cased heading. Deeper headings stay inside their H2 section.
func splitSections(root ast.Node, source []byte) (string, string, map[string]*section) {
	var (
		title   string
		intro   []ast.Node
		current *section
	)

	sections := make(map[string]*section)

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok && heading.Level <= 2 {
			text := headingText(heading, source)

			if heading.Level == 1 {
				if title == "" {
					title = text
				}

				current = nil

				continue
			}

			current = &section{heading: text}
			sections[strings.ToLower(text)] = current

			continue
		}

		if current != nil {
			current.nodes = append(current.nodes, n)
		} else if title != "" {
			intro = append(intro, n)
		}
	}

	return title, blockText(intro, source), sections
}

func headingText(heading ast.Node, source []byte) string {
	var b strings.Builder

	_ = ast.Walk(heading, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
		case *ast.String:
			b.Write(node.Value)
		}

		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

// blockText returns the raw source lines of paragraph blocks.
func blockText(nodes []ast.Node, source []byte) string {
	var parts []string

	for _, n := range nodes {
		if _, ok := n.(*ast.Paragraph); !ok {
			continue
		}

		var b bytes.Buffer

		lines := n.Lines()
		for i := range lines.Len() {
			line := lines.At(i)
			b.Write(line.Value(source))
		}

		parts = append(parts, strings.TrimSpace(b.String()))
	}

	return strings.Join(parts, "\n\n")
}

func codeBlockContent(block ast.Node, source []byte) string {
	var b strings.Builder

	lines := block.Lines()
	for i := range lines.Len() {
		line := lines.At(i)
		b.Write(line.Value(source))
	}

	return strings.TrimRight(b.String(), "\n")
}

func codeBlockInfo(block *ast.FencedCodeBlock, source []byte) string {
	if block.Info == nil {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(string(block.Info.Segment.Value(source))))
}

func firstCodeBlock(nodes []ast.Node, source []byte) (string, bool) {
	for _, n := range nodes {
		switch n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			return codeBlockContent(n, source), true
		}
	}

	return "", false
}

// scriptElement wraps a script in a <script> element. Scripts starting with
// <script> are parsed as XML.
func scriptElement(script string) (*xnode.Element, error) {
	trimmed := strings.TrimSpace(script)
	if strings.HasPrefix(trimmed, scriptOpen) {
		return xnode.ParseString(trimmed)
	}

	return xnode.El("script", nil, xnode.T(script)), nil
}

// inferKind reads the statement kind from the first SQL keyword.
func inferKind(el *xnode.Element) StatementKind {
	fields := strings.Fields(el.InnerText())
	if len(fields) == 0 {
		return KindSelect
	}

	if kind, ok := ParseStatementKind(fields[0]); ok {
		return kind
	}

	return KindSelect
}

// idFromTitle converts a title such as "Find user by ID" to findUserById.
func idFromTitle(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	if len(words) == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString(words[0])

	for _, word := range words[1:] {
		b.WriteString(strings.ToUpper(word[:1]) + word[1:])
	}

	return b.String()
}

func parseSampleParams(nodes []ast.Node, source []byte) (map[string]any, error) {
	for _, n := range nodes {
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			continue
		}

		switch codeBlockInfo(block, source) {
		case "yaml", "yml", "json", "":
		default:
			continue
		}

		var params map[string]any
		if err := yaml.Unmarshal([]byte(codeBlockContent(block, source)), &params); err != nil {
			return nil, fmt.Errorf("failed to parse parameters: %w", err)
		}

		return params, nil
	}

	return nil, nil
}

// parseTestCases reads H3 headed cases, each with a YAML block holding
// params, sql and args.
func parseTestCases(nodes []ast.Node, source []byte) ([]TestCase, error) {
	var (
		cases   []TestCase
		current *TestCase
	)

	for _, n := range nodes {
		switch node := n.(type) {
		case *ast.Heading:
			if current != nil {
				cases = append(cases, *current)
			}

			current = &TestCase{Name: headingText(node, source)}
		case *ast.FencedCodeBlock:
			if current == nil {
				return nil, fmt.Errorf("%w: code block before the first case heading", ErrInvalidTestCase)
			}

			name := current.Name
			if err := yaml.Unmarshal([]byte(codeBlockContent(node, source)), current); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTestCase, name, err)
			}

			current.Name = name
		}
	}

	if current != nil {
		cases = append(cases, *current)
	}

	return cases, nil
}
