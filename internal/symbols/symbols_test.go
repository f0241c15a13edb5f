// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package symbols

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calfront/calfront/internal/ast"
	"github.com/calfront/calfront/internal/compiler/cal"
	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
)

const sampleCodeunit = `OBJECT Codeunit 50100 Symbols Test
{
  PROPERTIES
  {
    OnRun=BEGIN
            Total := 0;
          END;

  }
  CODE
  {
    VAR
      Total@1000 : Decimal;
      Cust@1001 : TEMPORARY Record 18;
      Names@1002 : ARRAY [2,3] OF Text[30];
      total@1003 : Integer;

    PROCEDURE Calculate@1(VAR Amount@1000 : Decimal;Qty@1001 : Integer) Result : Decimal;
    VAR
      i@1002 : Integer;
      Amount@1003 : Integer;
    BEGIN
      EXIT(Amount * Qty);
    END;

    LOCAL PROCEDURE Post@2();
    BEGIN
    END;

    PROCEDURE Calculate@3();
    BEGIN
    END;

    BEGIN
    END.
  }
}
`

const sampleTable = `OBJECT Table 50101 Item Ledger
{
  FIELDS
  {
    { 1   ;   ;Entry No.           ;Integer        }
    { 2   ;   ;Item No.            ;Code20        ;OnValidate=VAR
                                                                Qty@1000 : Decimal;
                                                              BEGIN
                                                                Qty := 1;
                                                              END;

                                                   CaptionML=ENU=Item No. }
    { 3   ;   ;entry no.           ;Integer        }
  }
  KEYS
  {
    {    ;Entry No.,Item No.                      ;Clustered=Yes }
  }
  CODE
  {

    BEGIN
    END.
  }
}
`

func parse(t *testing.T, source string) *ast.Document {
	t.Helper()
	doc, errs := cal.Parse(cal.Tokenize(source))
	require.Empty(t, errs)
	return doc
}

func names(syms []*Symbol) []string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.Name)
	}
	return out
}

func TestOutline(t *testing.T) {
	t.Parallel()

	root := Outline("cu.cal", parse(t, sampleCodeunit))
	require.NotNil(t, root)
	require.Equal(t, "Symbols Test", root.Name)
	require.Equal(t, KindObject, root.Kind)
	require.Equal(t, "Codeunit 50100", root.Detail)
	require.Equal(t, []string{"PROPERTIES", "CODE"}, names(root.Children))

	props := root.Children[0]
	require.Equal(t, KindSection, props.Kind)
	require.Equal(t, []string{"OnRun"}, names(props.Children))
	require.Equal(t, KindTrigger, props.Children[0].Kind)

	code := root.Children[1]
	require.Equal(t, []string{"Total", "Cust", "Names", "total", "Calculate", "Post", "Calculate", "Documentation"}, names(code.Children))
	require.Equal(t, "TEMPORARY Record 18", code.Children[1].Detail)
	require.Equal(t, "ARRAY [2,3] OF Text[30]", code.Children[2].Detail)
	calc := code.Children[4]
	require.Equal(t, KindProcedure, calc.Kind)
	require.Equal(t, "(Amount;Qty) : Decimal", calc.Detail)
	require.Equal(t, []string{"Amount", "Qty", "i", "Amount"}, names(calc.Children))
	require.Equal(t, "VAR Decimal", calc.Children[0].Detail)
	require.Equal(t, KindParameter, calc.Children[1].Kind)
	require.Equal(t, KindVariable, calc.Children[2].Kind)
	require.Equal(t, "LOCAL ()", code.Children[5].Detail)
	require.Equal(t, "documentation", code.Children[7].Detail)

	require.Nil(t, Outline("x.cal", &ast.Document{}))
	require.Nil(t, Outline("x.cal", nil))
}

func TestOutlineTable(t *testing.T) {
	t.Parallel()

	root := Outline("tab.txt", parse(t, sampleTable))
	require.Equal(t, []string{"FIELDS", "KEYS", "CODE"}, names(root.Children))
	fields := root.Children[0].Children
	require.Equal(t, []string{"Entry No.", "Item No.", "entry no."}, names(fields))
	require.Equal(t, "2 Code[20]", fields[1].Detail)
	require.Equal(t, []string{"OnValidate"}, names(fields[1].Children))
	require.Equal(t, []string{"Entry No.,Item No."}, names(root.Children[1].Children))
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	flat := Flatten(Outline("cu.cal", parse(t, sampleCodeunit)))
	require.Equal(t, []string{
		"Symbols Test", "OnRun", "Total", "Cust", "Names", "total",
		"Calculate", "Amount", "Qty", "i", "Amount", "Post", "Calculate", "Documentation",
	}, names(flat))
	containers := make([]string, 0, len(flat))
	for _, s := range flat {
		require.Empty(t, s.Children)
		require.Equal(t, "cu.cal", s.URI)
		containers = append(containers, s.Container)
	}
	require.Equal(t, []string{
		"", "Symbols Test", "Symbols Test", "Symbols Test", "Symbols Test", "Symbols Test",
		"Symbols Test", "Calculate", "Calculate", "Calculate", "Calculate", "Symbols Test", "Symbols Test", "Symbols Test",
	}, containers)
	require.Nil(t, Flatten(nil))
}

func TestCollect(t *testing.T) {
	t.Parallel()

	reporter := exc.NewReporter(nil)
	table := Collect("cu.cal", parse(t, sampleCodeunit), reporter)
	reported := reporter.Reported()
	require.Len(t, reported, 3)
	for _, e := range reported {
		require.Equal(t, exc.CodeDuplicateSymbol, e.Code())
		require.Equal(t, "cu.cal", e.Location().URI)
	}
	require.Contains(t, reported[0].Message(), "variable total")
	require.Contains(t, reported[1].Message(), "local variable Amount")
	require.Contains(t, reported[2].Message(), "procedure Calculate")

	require.Equal(t, []string{"Total", "Cust", "Names", "Calculate", "Post"}, names(table.Global.Symbols()))
	require.Equal(t, KindVariable, table.Global.Lookup("TOTAL").Kind)
	require.Equal(t, "Decimal", table.Global.Lookup("total").Detail)

	exitAt := int64(strings.Index(sampleCodeunit, "EXIT(Amount"))
	scope := table.ScopeAt(exitAt)
	require.NotEqual(t, table.Global, scope)
	require.Equal(t, "Calculate", scope.Owner.Name)
	require.Equal(t, KindParameter, table.Resolve(exitAt, "amount").Kind)
	require.Equal(t, KindVariable, table.Resolve(exitAt, "Result").Kind)
	require.Equal(t, KindVariable, table.Resolve(exitAt, "Cust").Kind)
	require.NotNil(t, table.Resolve(exitAt, "i"))

	runAt := int64(strings.Index(sampleCodeunit, "Total := 0"))
	require.Equal(t, "OnRun", table.ScopeAt(runAt).Owner.Name)
	require.Nil(t, table.Resolve(runAt, "i"))
	require.Equal(t, KindVariable, table.Resolve(runAt, "Total").Kind)

	require.Equal(t, table.Global, table.ScopeAt(0))
}

func TestCollectTable(t *testing.T) {
	t.Parallel()

	reporter := exc.NewReporter(nil)
	doc := parse(t, sampleTable)
	table := Collect("tab.txt", doc, reporter)
	reported := reporter.Reported()
	require.Len(t, reported, 1)
	require.Contains(t, reported[0].Message(), "field entry no.")
	require.Equal(t, int32(13), reported[0].Location().Line)

	require.Equal(t, []string{"Entry No.", "Item No."}, names(table.Fields.Symbols()))
	require.Equal(t, KindField, table.Global.Lookup("ITEM NO.").Kind)

	trig := doc.Object.Fields.Fields[1].Property("OnValidate").Trigger
	scope := table.ScopeOf(trig)
	require.NotNil(t, scope)
	require.Equal(t, KindVariable, scope.Lookup("qty").Kind)
	require.Equal(t, KindField, scope.Lookup("Entry No.").Kind)
}

func TestReferences(t *testing.T) {
	t.Parallel()

	doc := parse(t, sampleCodeunit)
	table := Collect("cu.cal", doc, exc.NewReporterDiscard())

	total := References(table, doc, table.Global.Lookup("total"))
	require.Len(t, total, 1)
	require.Equal(t, int64(strings.Index(sampleCodeunit, "Total := 0")), total[0].Start.Offset)

	exitAt := int64(strings.Index(sampleCodeunit, "EXIT(Amount"))
	amount := References(table, doc, table.Resolve(exitAt, "Amount"))
	require.Len(t, amount, 1)
	require.Equal(t, exitAt+5, amount[0].Start.Offset)

	require.Empty(t, References(table, doc, table.Global.Lookup("Cust")))
	require.Nil(t, References(table, doc, nil))
}

func TestCollectEmpty(t *testing.T) {
	t.Parallel()

	table := Collect("x.cal", &ast.Document{}, exc.NewReporterDiscard())
	require.Nil(t, table.Object)
	require.Empty(t, table.Global.Symbols())
	require.Nil(t, table.Resolve(10, "x"))
}

func TestSearch(t *testing.T) {
	t.Parallel()

	flat := Flatten(Outline("cu.cal", parse(t, sampleCodeunit)))
	matches := Search(flat, "calc", 0)
	require.Len(t, matches, 2)
	for _, m := range matches {
		require.Equal(t, "Calculate", m.Symbol.Name)
		require.Equal(t, []int{0, 1, 2, 3}, m.Indexes)
	}

	matches = Search(flat, "tot", 0)
	require.Len(t, matches, 2)
	require.ElementsMatch(t, []string{"Total", "total"}, []string{matches[0].Symbol.Name, matches[1].Symbol.Name})

	require.Len(t, Search(flat, "", 3), 3)
	require.Len(t, Search(flat, "", 0), len(flat))
	require.Empty(t, Search(flat, "zzz", 0))
}

func TestTokenAt(t *testing.T) {
	t.Parallel()

	source := "x := Rec.\"No.\"; // done"
	tokens := cal.Tokenize(source)

	testCases := []struct {
		name     string
		offset   int64
		expected idl.Token
		found    bool
	}{
		{name: "identifier start", offset: 0, expected: tokens[0], found: true},
		{name: "whitespace", offset: 1, found: false},
		{name: "assign middle", offset: 3, expected: tokens[1], found: true},
		{name: "quoted identifier", offset: 11, expected: tokens[4], found: true},
		{name: "comment", offset: 18, expected: tokens[6], found: true},
		{name: "end of input", offset: int64(len(source)), found: false},
		{name: "negative", offset: -1, found: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			actual, ok := TokenAt(tokens, testCase.offset)
			require.Equal(t, testCase.found, ok)
			if ok {
				require.Equal(t, testCase.expected, actual)
			}
		})
	}
}

func TestSymbolAt(t *testing.T) {
	t.Parallel()

	root := Outline("cu.cal", parse(t, sampleCodeunit))
	at := SymbolAt(root, int64(strings.Index(sampleCodeunit, "EXIT(Amount")))
	require.NotNil(t, at)
	require.Equal(t, "Calculate", at.Name)
	decl := SymbolAt(root, int64(strings.Index(sampleCodeunit, "Cust@1001")))
	require.Equal(t, "Cust", decl.Name)
	require.Nil(t, SymbolAt(root, int64(len(sampleCodeunit)+10)))
}

func TestKind(t *testing.T) {
	t.Parallel()

	for k := KindObject; k <= KindParameter; k = k + 1 {
		require.Equal(t, k, ParseKind(k.String()))
	}
	require.Equal(t, KindUnknown, ParseKind("nope"))
	require.Equal(t, "kind(0)", KindUnknown.String())
}
