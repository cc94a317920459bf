package typechecker

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"squiggle/interpreter-go/pkg/ast"
)

const epsilon = 1e-9

// VariableID numbers every declaration; shadowed names get distinct IDs.
type VariableID int

// constraint says the product of its variables and units, raised to the
// given exponents, is dimensionless.
type constraint struct {
	defined   bool
	variables map[VariableID]float64
	units     map[string]float64
}

var noConstraint = constraint{}

func emptyConstraint() constraint {
	return constraint{defined: true, variables: map[VariableID]float64{}, units: map[string]float64{}}
}

func (c constraint) isEmpty() bool {
	return len(c.variables) == 0 && len(c.units) == 0
}

func multiply(left, right constraint) constraint {
	if !left.defined || !right.defined {
		return noConstraint
	}
	out := emptyConstraint()
	for id, p := range left.variables {
		out.variables[id] += p
	}
	for id, p := range right.variables {
		out.variables[id] += p
	}
	for u, p := range left.units {
		out.units[u] += p
	}
	for u, p := range right.units {
		out.units[u] += p
	}
	for id, p := range out.variables {
		if math.Abs(p) < epsilon {
			delete(out.variables, id)
		}
	}
	for u, p := range out.units {
		if math.Abs(p) < epsilon {
			delete(out.units, u)
		}
	}
	return out
}

func invert(c constraint) constraint {
	if !c.defined {
		return c
	}
	out := emptyConstraint()
	for id, p := range c.variables {
		out.variables[id] = -p
	}
	for u, p := range c.units {
		out.units[u] = -p
	}
	return out
}

func divide(left, right constraint) constraint {
	return multiply(left, invert(right))
}

// Two expressions have the same unit type when their ratio is unitless.
func requireEqual(left, right constraint) constraint {
	return divide(left, right)
}

type scope struct {
	variables map[string]VariableID
}

type pendingConstraint struct {
	constraint constraint
	node       ast.Node
}

// VariableType is the unit type inferred for one declaration.
type VariableType struct {
	Name     string
	Location ast.LocationRange
	Unit     string
}

// UnitReport lists the unit types that could be pinned down.
type UnitReport struct {
	Types []VariableType
}

// UnitError is the compile error raised for inconsistent unit annotations.
type UnitError struct {
	Message  string
	Location ast.LocationRange
}

func (e *UnitError) Error() string { return e.Message }

// Checker collects unit constraints from a program and solves them.
type Checker struct {
	stack       []scope
	names       []string
	nodes       []ast.Node
	isParameter []bool
	constraints []pendingConstraint
}

func New() *Checker {
	return &Checker{}
}

// CheckProgram verifies that unit annotations in prog are consistent. It never
// changes the program.
func (c *Checker) CheckProgram(prog *ast.Program) (*UnitReport, error) {
	*c = Checker{stack: []scope{{variables: map[string]VariableID{}}}}
	c.find(prog)
	return c.solve()
}

func (c *Checker) top() scope { return c.stack[len(c.stack)-1] }

func (c *Checker) pushScope() {
	vars := make(map[string]VariableID, len(c.top().variables))
	for k, v := range c.top().variables {
		vars[k] = v
	}
	c.stack = append(c.stack, scope{variables: vars})
}

func (c *Checker) popScope() { c.stack = c.stack[:len(c.stack)-1] }

func (c *Checker) declare(name string, node ast.Node, parameter bool) constraint {
	id := VariableID(len(c.nodes))
	c.names = append(c.names, name)
	c.nodes = append(c.nodes, node)
	c.isParameter = append(c.isParameter, parameter)
	c.top().variables[name] = id
	out := emptyConstraint()
	out.variables[id] = 1
	return out
}

func (c *Checker) reference(name string) constraint {
	id, ok := c.top().variables[name]
	if !ok {
		// Undefined names are the compiler's problem.
		return noConstraint
	}
	out := emptyConstraint()
	out.variables[id] = 1
	return out
}

func (c *Checker) add(con constraint, node ast.Node) {
	if con.defined && !con.isEmpty() {
		c.constraints = append(c.constraints, pendingConstraint{constraint: con, node: node})
	}
}

func signatureConstraint(node ast.Node) constraint {
	switch n := node.(type) {
	case *ast.UnitTypeSignature:
		return signatureConstraint(n.Body)
	case *ast.Float, *ast.UnitValue:
		// `1/s` is written with a unitless literal.
		return emptyConstraint()
	case *ast.Identifier:
		out := emptyConstraint()
		out.units[n.Value] = 1
		return out
	case *ast.InfixUnitType:
		left := signatureConstraint(n.Args[0])
		right := signatureConstraint(n.Args[1])
		if n.Op == "*" {
			return multiply(left, right)
		}
		return divide(left, right)
	}
	return noConstraint
}

func (c *Checker) find(node ast.Node) constraint {
	switch n := node.(type) {
	case *ast.Program:
		c.pushScope()
		for _, stmt := range n.Statements {
			c.find(stmt)
		}
		if n.Result != nil {
			c.find(n.Result)
		}
		c.popScope()
		return noConstraint
	case *ast.Block:
		c.pushScope()
		for _, stmt := range n.Statements {
			c.find(stmt)
		}
		result := c.find(n.Result)
		c.popScope()
		return result
	case *ast.LetStatement:
		value := c.find(n.Value)
		variable := c.declare(n.Variable.Value, n, false)
		if n.UnitType != nil {
			c.add(requireEqual(variable, signatureConstraint(n.UnitType)), n)
		}
		c.add(requireEqual(variable, value), n)
		return noConstraint
	case *ast.DefunStatement:
		c.declare(n.Variable.Value, n, false)
		c.find(n.Value)
		return noConstraint
	case *ast.DecoratedStatement:
		return c.find(n.Statement)
	case *ast.Lambda:
		c.pushScope()
		for _, param := range n.Parameters {
			variable := c.declare(param.Variable, param, true)
			if param.UnitType != nil {
				c.add(requireEqual(variable, signatureConstraint(param.UnitType)), param)
			}
		}
		c.find(n.Body)
		c.popScope()
		return noConstraint
	case *ast.Identifier:
		return c.reference(n.Value)
	case *ast.Float, *ast.UnitValue, *ast.String, *ast.Boolean:
		return noConstraint
	case *ast.InfixCall:
		return c.findInfix(n)
	}
	for _, child := range ast.Children(node) {
		c.find(child)
	}
	return noConstraint
}

func (c *Checker) findInfix(n *ast.InfixCall) constraint {
	left := c.find(n.Args[0])
	right := c.find(n.Args[1])
	switch n.Op {
	case "*", ".*":
		return multiply(left, right)
	case "/", "./":
		return divide(left, right)
	case "==", "!=", "<", "<=", ">", ">=":
		c.add(requireEqual(left, right), n)
		return noConstraint
	case "+", "-", ".+", ".-", "to":
		c.add(requireEqual(left, right), n)
		if !left.defined && right.defined {
			return right
		}
		return left
	}
	// Exponentiation and boolean operators have no unit type.
	return noConstraint
}

// solve builds the linear system, one row per constraint and one column per
// variable on the left, one column per named unit on the right, and reduces it.
func (c *Checker) solve() (*UnitReport, error) {
	unitSet := map[string]struct{}{}
	for _, pc := range c.constraints {
		for u := range pc.constraint.units {
			unitSet[u] = struct{}{}
		}
	}
	unitNames := make([]string, 0, len(unitSet))
	for u := range unitSet {
		unitNames = append(unitNames, u)
	}
	sort.Strings(unitNames)

	varRows := make([][]float64, len(c.constraints))
	unitRows := make([][]float64, len(c.constraints))
	for i, pc := range c.constraints {
		varRows[i] = make([]float64, len(c.nodes))
		for id, p := range pc.constraint.variables {
			varRows[i][id] = p
		}
		unitRows[i] = make([]float64, len(unitNames))
		for j, u := range unitNames {
			unitRows[i][j] = pc.constraint.units[u]
		}
	}

	conflicts := gaussianElim(varRows, unitRows)
	if len(conflicts) > 0 {
		rows := conflicts[0]
		lines := make([]string, 0, len(rows))
		for _, r := range rows {
			con := c.constraints[r].constraint
			lines = append(lines, fmt.Sprintf("%s :: %s", c.variablesString(con.variables), unitsString(con.units)))
		}
		return nil, &UnitError{
			Message:  "Conflicting unit types:\n\t" + strings.Join(lines, "\n\t"),
			Location: c.constraints[rows[0]].node.Location(),
		}
	}

	report := &UnitReport{}
	for i, row := range varRows {
		id, ok := singleUnitEntry(row)
		if !ok || c.isParameter[id] {
			continue
		}
		unit := map[string]float64{}
		for j, v := range unitRows[i] {
			if math.Abs(v) >= epsilon {
				// var + unit = 0 means var = -unit
				unit[unitNames[j]] -= v
			}
		}
		report.Types = append(report.Types, VariableType{
			Name:     c.names[id],
			Location: c.nodes[id].Location(),
			Unit:     UnitTypeString(unit),
		})
	}
	sort.Slice(report.Types, func(a, b int) bool {
		return report.Types[a].Location.Start.Offset < report.Types[b].Location.Start.Offset
	})
	return report, nil
}

func singleUnitEntry(row []float64) (int, bool) {
	col := -1
	for j, v := range row {
		if math.Abs(v) < epsilon {
			continue
		}
		if col != -1 || math.Abs(v-1) > epsilon {
			return 0, false
		}
		col = j
	}
	return col, col != -1
}

// gaussianElim reduces varRows to reduced row echelon form, applying the same
// operations to unitRows. It returns, for every row that ended up as
// `0 = nonzero`, the indices of the original rows that were combined into it.
func gaussianElim(varRows, unitRows [][]float64) [][]int {
	numRows := len(varRows)
	if numRows == 0 {
		return nil
	}
	numCols := len(varRows[0])
	touchedBy := make([][]int, numRows)
	for i := range touchedBy {
		touchedBy[i] = []int{i}
	}

	h, k := 0, 0
	var pivots []int
	for h < numRows && k < numCols {
		iMax := h
		for i := h + 1; i < numRows; i++ {
			if math.Abs(varRows[i][k]) > math.Abs(varRows[iMax][k]) {
				iMax = i
			}
		}
		if math.Abs(varRows[iMax][k]) < epsilon {
			k++
			continue
		}
		varRows[h], varRows[iMax] = varRows[iMax], varRows[h]
		unitRows[h], unitRows[iMax] = unitRows[iMax], unitRows[h]
		touchedBy[h], touchedBy[iMax] = touchedBy[iMax], touchedBy[h]
		for i := h + 1; i < numRows; i++ {
			scale := varRows[i][k] / varRows[h][k]
			if scale == 0 {
				continue
			}
			floats.AddScaled(varRows[i], -scale, varRows[h])
			floats.AddScaled(unitRows[i], -scale, unitRows[h])
			touchedBy[i] = append(append([]int{}, touchedBy[i]...), touchedBy[h]...)
		}
		pivots = append(pivots, k)
		h++
		k++
	}

	// Back substitution, then scale pivots to 1.
	for r := len(pivots) - 1; r >= 0; r-- {
		col := pivots[r]
		for above := r - 1; above >= 0; above-- {
			scale := varRows[above][col] / varRows[r][col]
			if scale == 0 {
				continue
			}
			floats.AddScaled(varRows[above], -scale, varRows[r])
			floats.AddScaled(unitRows[above], -scale, unitRows[r])
		}
		pivot := varRows[r][col]
		floats.Scale(1/pivot, varRows[r])
		floats.Scale(1/pivot, unitRows[r])
	}

	var conflicts [][]int
	for i := numRows - 1; i >= 0; i-- {
		if allZero(varRows[i]) && !allZero(unitRows[i]) {
			conflicts = append(conflicts, touchedBy[i])
		}
	}
	return conflicts
}

func allZero(row []float64) bool {
	for _, v := range row {
		if math.Abs(v) >= epsilon {
			return false
		}
	}
	return true
}

func (c *Checker) variablesString(vars map[VariableID]float64) string {
	if len(vars) == 0 {
		return "<unitless>"
	}
	named := map[string]float64{}
	for id, p := range vars {
		named[c.names[id]] += p
	}
	return UnitTypeString(named)
}

func unitsString(units map[string]float64) string {
	if len(units) == 0 {
		return "<unitless>"
	}
	negated := make(map[string]float64, len(units))
	for u, p := range units {
		negated[u] = -p
	}
	return UnitTypeString(negated)
}

// UnitTypeString formats a unit type such as {m: 1, s: -2} as "m / s^2".
func UnitTypeString(unit map[string]float64) string {
	names := make([]string, 0, len(unit))
	for name := range unit {
		names = append(names, name)
	}
	sort.Strings(names)
	var pos, neg []string
	for _, name := range names {
		p := unit[name]
		switch {
		case p > epsilon:
			pos = append(pos, withExponent(name, p))
		case p < -epsilon:
			neg = append(neg, withExponent(name, -p))
		}
	}
	var b strings.Builder
	if len(pos) == 0 {
		b.WriteString("1")
	}
	b.WriteString(strings.Join(pos, " * "))
	if len(neg) > 0 {
		b.WriteString(" / ")
		b.WriteString(strings.Join(neg, " / "))
	}
	return b.String()
}

func withExponent(name string, p float64) string {
	if math.Abs(p-1) < epsilon {
		return name
	}
	if r := math.Round(p); math.Abs(p-r) < epsilon {
		p = r
	}
	return name + "^" + strconv.FormatFloat(p, 'g', -1, 64)
}

// CheckUnits runs a fresh Checker over prog.
func CheckUnits(prog *ast.Program) (*UnitReport, error) {
	return New().CheckProgram(prog)
}

// TypeOf returns the inferred unit of the last declaration named name.
func (r *UnitReport) TypeOf(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	for i := len(r.Types) - 1; i >= 0; i-- {
		if r.Types[i].Name == name {
			return r.Types[i].Unit, true
		}
	}
	return "", false
}
