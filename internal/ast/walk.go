// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package ast

// Walk calls f for node and every node below it, parents before children.
// Nil nodes are skipped.
func Walk(node Node, f func(Node)) {
	switch n := node.(type) {
	case nil:
	case *ObjectDeclaration:
		walkObject(n, f)
	case Section:
		walkSection(n, f)
	case *Property:
		walkProperty(n, f)
	case *FieldDeclaration:
		walkFieldDeclaration(n, f)
	case *KeyDeclaration:
		walkKeyDeclaration(n, f)
	case *Item:
		walkItem(n, f)
	case *ProcedureDeclaration:
		walkProcedure(n, f)
	case *TriggerDeclaration:
		walkTrigger(n, f)
	case *VariableDeclaration:
		walkVariable(n, f)
	case *Parameter:
		walkParameter(n, f)
	case *DataType:
		if n != nil {
			f(n)
		}
	case *Attribute:
		if n != nil {
			f(n)
		}
	case *CaseBranch:
		walkCaseBranch(n, f)
	case Statement:
		walkStatement(n, f)
	case Expression:
		walkExpression(n, f)
	}
}

// WalkDocument walks the object of a document, if there is one.
func WalkDocument(doc *Document, f func(Node)) {
	if doc == nil || doc.Object == nil {
		return
	}
	walkObject(doc.Object, f)
}

func walkObject(obj *ObjectDeclaration, f func(Node)) {
	if obj == nil {
		return
	}
	f(obj)
	for _, section := range obj.Sections {
		walkSection(section, f)
	}
}

func walkSection(section Section, f func(Node)) {
	switch s := section.(type) {
	case *PropertySection:
		if s == nil {
			return
		}
		f(s)
		for _, prop := range s.Properties {
			walkProperty(prop, f)
		}
	case *FieldSection:
		if s == nil {
			return
		}
		f(s)
		for _, field := range s.Fields {
			walkFieldDeclaration(field, f)
		}
	case *KeySection:
		if s == nil {
			return
		}
		f(s)
		for _, key := range s.Keys {
			walkKeyDeclaration(key, f)
		}
	case *ItemSection:
		if s == nil {
			return
		}
		f(s)
		for _, item := range s.Items {
			walkItem(item, f)
		}
	case *CodeSection:
		if s == nil {
			return
		}
		f(s)
		for _, v := range s.Variables {
			walkVariable(v, f)
		}
		for _, proc := range s.Procedures {
			walkProcedure(proc, f)
		}
		for _, trig := range s.Triggers {
			walkTrigger(trig, f)
		}
	case *UnmodeledSection:
		if s == nil {
			return
		}
		f(s)
	}
}

func walkProperty(prop *Property, f func(Node)) {
	if prop == nil {
		return
	}
	f(prop)
	walkTrigger(prop.Trigger, f)
}

func walkFieldDeclaration(field *FieldDeclaration, f func(Node)) {
	if field == nil {
		return
	}
	f(field)
	// Field triggers are reached through their properties.
	for _, prop := range field.Properties {
		walkProperty(prop, f)
	}
}

func walkKeyDeclaration(key *KeyDeclaration, f func(Node)) {
	if key == nil {
		return
	}
	f(key)
	for _, prop := range key.Properties {
		walkProperty(prop, f)
	}
}

func walkItem(item *Item, f func(Node)) {
	if item == nil {
		return
	}
	f(item)
	for _, prop := range item.Properties {
		walkProperty(prop, f)
	}
}

func walkAttributes(attrs []*Attribute, f func(Node)) {
	for _, attr := range attrs {
		if attr != nil {
			f(attr)
		}
	}
}

func walkProcedure(proc *ProcedureDeclaration, f func(Node)) {
	if proc == nil {
		return
	}
	f(proc)
	walkAttributes(proc.Attributes, f)
	for _, param := range proc.Parameters {
		walkParameter(param, f)
	}
	if proc.ReturnType != nil {
		f(proc.ReturnType)
	}
	for _, v := range proc.Variables {
		walkVariable(v, f)
	}
	if proc.Body != nil {
		walkStatement(proc.Body, f)
	}
}

func walkTrigger(trig *TriggerDeclaration, f func(Node)) {
	if trig == nil {
		return
	}
	f(trig)
	walkAttributes(trig.Attributes, f)
	for _, param := range trig.Parameters {
		walkParameter(param, f)
	}
	for _, v := range trig.Variables {
		walkVariable(v, f)
	}
	if trig.Body != nil {
		walkStatement(trig.Body, f)
	}
}

func walkVariable(v *VariableDeclaration, f func(Node)) {
	if v == nil {
		return
	}
	f(v)
	if v.DataType != nil {
		f(v.DataType)
	}
}

func walkParameter(param *Parameter, f func(Node)) {
	if param == nil {
		return
	}
	f(param)
	if param.DataType != nil {
		f(param.DataType)
	}
}

func walkStatements(stmts []Statement, f func(Node)) {
	for _, stmt := range stmts {
		walkStatement(stmt, f)
	}
}

func walkCaseBranch(branch *CaseBranch, f func(Node)) {
	if branch == nil {
		return
	}
	f(branch)
	walkExpressions(branch.Values, f)
	walkStatement(branch.Body, f)
}

func walkStatement(stmt Statement, f func(Node)) {
	switch s := stmt.(type) {
	case *BlockStatement:
		if s == nil {
			return
		}
		f(s)
		walkStatements(s.Statements, f)
	case *IfStatement:
		f(s)
		walkExpression(s.Condition, f)
		walkStatement(s.Then, f)
		walkStatement(s.Else, f)
	case *CaseStatement:
		f(s)
		walkExpression(s.Expression, f)
		for _, branch := range s.Branches {
			walkCaseBranch(branch, f)
		}
		walkStatements(s.Else, f)
	case *WhileStatement:
		f(s)
		walkExpression(s.Condition, f)
		walkStatement(s.Body, f)
	case *RepeatStatement:
		f(s)
		walkStatements(s.Body, f)
		walkExpression(s.Condition, f)
	case *ForStatement:
		f(s)
		walkExpression(s.Variable, f)
		walkExpression(s.Initial, f)
		walkExpression(s.Final, f)
		walkStatement(s.Body, f)
	case *WithStatement:
		f(s)
		walkExpression(s.Record, f)
		walkStatement(s.Body, f)
	case *CallStatement:
		f(s)
		walkExpression(s.Expression, f)
	case *AssignmentStatement:
		f(s)
		walkExpression(s.Target, f)
		walkExpression(s.Value, f)
	case *BreakStatement:
		f(s)
	case *ExitStatement:
		f(s)
		walkExpression(s.Value, f)
	}
}

func walkExpressions(exprs []Expression, f func(Node)) {
	for _, expr := range exprs {
		walkExpression(expr, f)
	}
}

func walkExpression(expr Expression, f func(Node)) {
	switch e := expr.(type) {
	case *Identifier:
		if e != nil {
			f(e)
		}
	case *Literal:
		f(e)
	case *BinaryOp:
		f(e)
		walkExpression(e.Left, f)
		walkExpression(e.Right, f)
	case *UnaryOp:
		f(e)
		walkExpression(e.Operand, f)
	case *MemberAccess:
		f(e)
		walkExpression(e.Object, f)
		walkExpression(e.Member, f)
	case *Call:
		f(e)
		walkExpression(e.Callee, f)
		walkExpressions(e.Arguments, f)
	case *Index:
		f(e)
		walkExpression(e.Target, f)
		walkExpressions(e.Indices, f)
	case *Set:
		f(e)
		walkExpressions(e.Elements, f)
	}
}
