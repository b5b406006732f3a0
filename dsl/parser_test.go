package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/thumbsmith/dsl"
)

const samplePreset = `
thumb Bold v1 {
  meta {
    title: "Bold headline"
    tags: [
      "gaming"
      "review"
    ]
  }

  # 样式可以继承
  styles {
    style Base { font: "Anton" size: 80px line-height: 1.1x color: #FFFFFF }
    style Headline extends Base {
      stroke: #000000
      stroke-width: 6
      align: center
    }
  }

  layers {
    text Headline x 40 y 420 width 1200 rotate -3 { "${headline|upper}" }
    text Base x 5% y 40 size 48 gradient-from #FFD400 { "${keywords[0]}" }
  }
}
`

func TestParsePreset(t *testing.T) {
	doc, err := dsl.ParseString(samplePreset)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Name != "Bold" || doc.Version != "v1" {
		t.Fatalf("unexpected header %s %s", doc.Name, doc.Version)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(doc.Sections))
	}
	kinds := []string{doc.Sections[0].Kind(), doc.Sections[1].Kind(), doc.Sections[2].Kind()}
	if strings.Join(kinds, ",") != "meta,styles,layers" {
		t.Fatalf("unexpected section kinds %v", kinds)
	}

	meta := doc.Sections[0].Meta
	title := meta.Block.Statements[0].Assignment
	if title == nil || title.Key != "title" || string(*title.Value.String) != "Bold headline" {
		t.Fatalf("expected title assignment, got %+v", meta.Block.Statements[0])
	}
	tags := meta.Block.Statements[1].Assignment
	if tags == nil || tags.Value.Array == nil || len(tags.Value.Array.Values) != 2 {
		t.Fatalf("expected two tags, got %+v", meta.Block.Statements[1])
	}
}

func TestParseStyles(t *testing.T) {
	doc, err := dsl.ParseString(samplePreset)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	styles := doc.Sections[1].Styles.Block.Statements
	if len(styles) != 2 {
		t.Fatalf("expected 2 styles, got %d", len(styles))
	}

	base := styles[0].Command
	if base == nil || base.Name != "style" || base.Args[0].Value != "Base" {
		t.Fatalf("unexpected base style %+v", styles[0])
	}
	// 同一行上的多个 key: value
	if len(base.Block.Statements) != 4 {
		t.Fatalf("expected 4 inline assignments, got %d", len(base.Block.Statements))
	}
	size := base.Block.Statements[1].Assignment
	if size.Key != "size" || size.Value.Number == nil || *size.Value.Number != "80px" {
		t.Fatalf("unexpected size assignment %+v", size)
	}
	color := base.Block.Statements[3].Assignment
	if color.Value.Color == nil || *color.Value.Color != "#FFFFFF" {
		t.Fatalf("unexpected color assignment %+v", color)
	}

	headline := styles[1].Command
	if len(headline.Args) != 3 || headline.Args[1].Value != "extends" || headline.Args[2].Value != "Base" {
		t.Fatalf("unexpected extends clause %+v", headline.Args)
	}
	align := headline.Block.Statements[2].Assignment
	if align == nil || align.Value.Expr == nil || align.Value.Expr.String() != "center" {
		t.Fatalf("expected bare identifier value, got %+v", headline.Block.Statements[2])
	}
}

func TestParseLayers(t *testing.T) {
	doc, err := dsl.ParseString(samplePreset)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	layers := doc.Sections[2].Layers.Block.Statements
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	first := layers[0].Command
	if first == nil || first.Name != "text" {
		t.Fatalf("expected text command, got %+v", layers[0])
	}
	if got := tokensToString(first.Args); got != "Headline x 40 y 420 width 1200 rotate -3" {
		t.Fatalf("unexpected args: %s", got)
	}
	if first.Args[8].Type != "Number" {
		t.Fatalf("negative rotation must lex as a number, got %s", first.Args[8].Type)
	}
	if first.Block == nil || first.Block.Statements[0].Text == nil {
		t.Fatalf("text command missing literal content")
	}
	if got := string(first.Block.Statements[0].Text.Value); got != "${headline|upper}" {
		t.Fatalf("unexpected literal %q", got)
	}

	second := layers[1].Command
	if second.Args[2].Value != "5%" || second.Args[8].Type != "Color" {
		t.Fatalf("unexpected second layer args: %+v", second.Args)
	}
}

func TestParseRejectsWrongHeader(t *testing.T) {
	if _, err := dsl.ParseString(`doc Papyrus v1 { }`); err == nil {
		t.Fatalf("expected error for non-thumb document")
	}
}

func tokensToString(parts []*dsl.Lexeme) string {
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, p.Value)
	}
	return strings.Join(values, " ")
}
