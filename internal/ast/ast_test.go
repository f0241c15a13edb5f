// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package ast

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calfront/calfront/internal/idl"
)

func TestKindNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Table", ObjectKindTable.String())
	require.Equal(t, "XMLport", ObjectKindXMLport.String())
	require.Equal(t, "Unknown", ObjectKind(200).String())
	require.Equal(t, "OBJECT-PROPERTIES", SectionKindObjectProperties.String())
	require.Equal(t, "REQUESTPAGE", SectionKindRequestPage.String())
	require.Equal(t, "SECTION(200)", SectionKind(200).String())
	require.Equal(t, "documentation", TriggerKindDocumentation.String())
}

func TestLookups(t *testing.T) {
	t.Parallel()

	props := &PropertySection{
		Kind: SectionKindProperties,
		Properties: []*Property{
			{Name: "Version List"},
			{Name: "OnRun"},
		},
	}
	require.Equal(t, "OnRun", props.Property("onrun").Name)
	require.Equal(t, "Version List", props.Property("VERSION LIST").Name)
	require.Nil(t, props.Property("OnInsert"))

	code := &CodeSection{
		Procedures: []*ProcedureDeclaration{{Name: "PostInvoice"}},
	}
	require.NotNil(t, code.Procedure("POSTINVOICE"))
	require.Nil(t, code.Procedure("Post"))

	controls := &ItemSection{Kind: SectionKindControls}
	obj := &ObjectDeclaration{Sections: []Section{props, controls}}
	require.Same(t, controls, obj.ItemSection(SectionKindControls))
	require.Nil(t, obj.ItemSection(SectionKindActions))
}

func TestSpan(t *testing.T) {
	t.Parallel()

	start := idl.Token{Span: idl.Span{Start: idl.Location{Line: 1, Column: 1}, End: idl.Location{Line: 1, Column: 6, Offset: 5}}}
	end := idl.Token{Span: idl.Span{Start: idl.Location{Line: 3, Column: 1, Offset: 20}, End: idl.Location{Line: 3, Column: 4, Offset: 23}}}
	b := Base{StartToken: start, EndToken: end}
	require.Equal(t, idl.Span{Start: start.Span.Start, End: end.Span.End}, b.Span())
}

func TestWalk(t *testing.T) {
	t.Parallel()

	doc := &Document{
		Object: &ObjectDeclaration{
			Sections: []Section{
				&UnmodeledSection{Kind: SectionKindEvents, Name: "EVENTS"},
				&CodeSection{
					Variables: []*VariableDeclaration{
						{Name: "Cust", DataType: &DataType{TypeName: "Record"}},
					},
					Procedures: []*ProcedureDeclaration{
						{
							Name: "Run",
							Body: &BlockStatement{
								Statements: []Statement{
									&AssignmentStatement{
										Target:   &Identifier{Name: "x"},
										Operator: ":=",
										Value: &BinaryOp{
											Operator: "+",
											Left:     &Literal{Kind: LiteralKindInteger, Value: "1"},
											Right:    &Identifier{Name: "y"},
										},
									},
									&IfStatement{
										Condition: &Identifier{Name: "ok"},
										Then:      &ExitStatement{},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	var visited []string
	WalkDocument(doc, func(n Node) {
		visited = append(visited, fmt.Sprintf("%T", n))
	})
	require.Equal(t, []string{
		"*ast.ObjectDeclaration",
		"*ast.UnmodeledSection",
		"*ast.CodeSection",
		"*ast.VariableDeclaration",
		"*ast.DataType",
		"*ast.ProcedureDeclaration",
		"*ast.BlockStatement",
		"*ast.AssignmentStatement",
		"*ast.Identifier",
		"*ast.BinaryOp",
		"*ast.Literal",
		"*ast.Identifier",
		"*ast.IfStatement",
		"*ast.Identifier",
		"*ast.ExitStatement",
	}, visited)

	var names []string
	Walk(doc.Object, func(n Node) {
		if id, ok := n.(*Identifier); ok {
			names = append(names, id.Name)
		}
	})
	require.Equal(t, []string{"x", "y", "ok"}, names)

	WalkDocument(&Document{}, func(Node) {
		t.Fatal("empty document has no nodes")
	})
}
