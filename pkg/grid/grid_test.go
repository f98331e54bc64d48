package grid

import (
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func c(text string) *Cell { return NewCell(text, 1, 1) }

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		rows func() [][]*Cell
		want [][]string
	}{
		{
			name: "no spans is identity",
			rows: func() [][]*Cell {
				return [][]*Cell{{c("a"), c("b")}, {c("c"), c("d")}}
			},
			want: [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name: "colspan in first row always expands",
			rows: func() [][]*Cell {
				return [][]*Cell{
					{NewCell("A", 3, 1), c("B")},
					{c("c"), c("d"), c("e"), c("f")},
				}
			},
			want: [][]string{{"A", "A", "A", "B"}, {"c", "d", "e", "f"}},
		},
		{
			name: "colspan in later row fills a shorter row",
			rows: func() [][]*Cell {
				return [][]*Cell{
					{c("a"), c("b"), c("c")},
					{NewCell("X", 2, 1), c("y")},
				}
			},
			want: [][]string{{"a", "b", "c"}, {"X", "X", "y"}},
		},
		{
			name: "colspan in later row does not overflow",
			rows: func() [][]*Cell {
				return [][]*Cell{
					{c("a"), c("b")},
					{NewCell("X", 2, 1), c("y")},
				}
			},
			want: [][]string{{"a", "b"}, {"X", "y"}},
		},
		{
			name: "rowspan truncated at table end",
			rows: func() [][]*Cell {
				return [][]*Cell{
					{NewCell("A", 1, 5), c("B")},
					{c("C")},
				}
			},
			want: [][]string{{"A", "B"}, {"A", "C"}},
		},
		{
			name: "colspan and rowspan together",
			rows: func() [][]*Cell {
				return [][]*Cell{
					{c("H1"), NewCell("H2", 2, 1)},
					{NewCell("A", 1, 2), c("B"), c("C")},
					{c("D"), c("E")},
				}
			},
			want: [][]string{{"H1", "H2", "H2"}, {"A", "B", "C"}, {"A", "D", "E"}},
		},
		{
			name: "empty table",
			rows: func() [][]*Cell { return nil },
			want: [][]string{},
		},
		{
			name: "ragged rows",
			rows: func() [][]*Cell {
				return [][]*Cell{{c("a")}, {}, {c("b"), c("c"), c("d")}}
			},
			want: [][]string{{"a"}, {}, {"b", "c", "d"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Text(Flatten(tt.rows()))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Flatten() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlatten_Idempotent(t *testing.T) {
	rows := [][]*Cell{
		{c("H1"), NewCell("H2", 2, 1)},
		{NewCell("A", 1, 2), c("B"), c("C")},
		{c("D"), c("E")},
	}

	first := Text(Flatten(rows))
	second := Text(Flatten(rows))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated Flatten differs: %v vs %v", first, second)
	}
	if len(rows[0]) != 2 || len(rows[2]) != 2 {
		t.Error("Flatten must not modify its input rows")
	}
}

func TestFlatten_SharesCellReferences(t *testing.T) {
	a := NewCell("A", 2, 2)
	g := Flatten([][]*Cell{{a}, {c("b")}})
	if g[0][0] != a || g[0][1] != a || g[1][0] != a {
		t.Errorf("expected span copies to reference the same cell, got %v", Text(g))
	}
}

func TestParseSpan(t *testing.T) {
	tests := map[string]int{
		"":    1,
		"1":   1,
		"3":   3,
		"0":   1,
		"-1":  1,
		"abc": 1,
		"2a":  1,
		" 2":  1,
	}
	for in, want := range tests {
		if got := ParseSpan(in); got != want {
			t.Errorf("ParseSpan(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestFlattenTable(t *testing.T) {
	const page = `<table class="boxstyle02">
<tr><th>날짜</th><th colspan="2">식사</th></tr>
<tr><td rowspan="2">월</td><td>밥<br>국</td><td>빵</td></tr>
<tr><td>면</td><td>죽</td></tr>
<tr><td colspan="abc">x</td><td>y</td></tr>
</table>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := FlattenTable(doc.Find("table.boxstyle02"))
	want := [][]string{
		{"날짜", "식사", "식사"},
		{"월", "밥\n국", "빵"},
		{"월", "면", "죽"},
		{"x", "y"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FlattenTable() = %q, want %q", got, want)
	}
}
