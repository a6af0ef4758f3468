package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

var (
	ErrCyclicNode    = errors.New("command: cyclic command tree")
	ErrDuplicateName = errors.New("command: duplicate command name")
	ErrEmptyName     = errors.New("command: empty command name")
)

// helpWord is reserved at every level of the tree, see Tree.Resolve.
const helpWord = "help"

// Tree is the immutable set of registered commands.
type Tree struct {
	roots []*Node
	index map[string]*Node
}

// Resolution is the result of resolving an invocation against the tree.
type Resolution struct {
	Node *Node
	Args string
	// Help is set when the invocation asked for the node's description
	// instead of running it.
	Help bool
}

// NewTree builds the tree from specs. Specs are only read; they can be
// discarded afterwards.
func NewTree(specs ...*Spec) (*Tree, error) {
	t := &Tree{index: make(map[string]*Node)}
	for _, spec := range specs {
		node, err := build(spec, nil, map[*Spec]bool{})
		if err != nil {
			return nil, err
		}
		for _, token := range tokens(node) {
			if prev, ok := t.index[token]; ok {
				return nil, fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateName, token, prev.name, node.name)
			}
			t.index[token] = node
		}
		t.roots = append(t.roots, node)
	}
	return t, nil
}

func build(spec *Spec, parent *Node, path map[*Spec]bool) (*Node, error) {
	if spec == nil || strings.TrimSpace(spec.Name) == "" {
		return nil, ErrEmptyName
	}
	if path[spec] {
		return nil, fmt.Errorf("%w: %s is its own ancestor", ErrCyclicNode, spec.Name)
	}
	path[spec] = true
	defer delete(path, spec)

	n := &Node{
		name:         spec.Name,
		aliases:      append([]string(nil), spec.Aliases...),
		help:         spec.Help,
		arguments:    spec.Arguments,
		parent:       parent,
		category:     spec.Category,
		level:        spec.Level,
		adjustable:   !spec.FixedLevel,
		guildOnly:    spec.GuildOnly,
		operatorOnly: spec.OperatorOnly,
		check:        spec.Check,
		capabilities: append([]Capability(nil), spec.Capabilities...),
		cooldown:     spec.Cooldown,
		requireArgs:  spec.RequireArgs,
		missingArgs:  spec.MissingArgs,
		run:          spec.Run,
	}

	if parent != nil {
		if n.category == nil {
			n.category = parent.category
		}
		if n.level == Inherit {
			n.level = parent.level
		}
		n.guildOnly = n.guildOnly || parent.guildOnly
		n.operatorOnly = n.operatorOnly || parent.operatorOnly
	}
	if c := n.category; c != nil {
		if n.level == Inherit {
			n.level = c.Level
		}
		n.guildOnly = n.guildOnly || c.GuildOnly
		n.operatorOnly = n.operatorOnly || c.OperatorOnly
	}
	if n.level == Inherit {
		n.level = Standard
	}

	seen := map[string]string{}
	for _, cs := range spec.Children {
		child, err := build(cs, n, path)
		if err != nil {
			return nil, err
		}
		for _, token := range tokens(child) {
			if prev, ok := seen[token]; ok {
				return nil, fmt.Errorf("%w: %q used by %s and %s under %s", ErrDuplicateName, token, prev, child.name, n.FullName())
			}
			seen[token] = child.name
		}
		n.children = append(n.children, child)
	}
	return n, nil
}

func tokens(n *Node) []string {
	out := []string{strings.ToLower(n.name)}
	for _, a := range n.aliases {
		out = append(out, strings.ToLower(a))
	}
	return out
}

// Resolve matches name against the root commands and descends into
// sub-commands while the next argument token names one of them. The
// remaining text is returned as the arguments.
//
// If the remaining text at any level is exactly "help" (in any case),
// resolution stops there and the node's description is requested. A
// sub-command named "help" can therefore never be reached.
//
// Resolve returns nil when name is not a command.
func (t *Tree) Resolve(name, args string) *Resolution {
	node := t.index[strings.ToLower(name)]
	if node == nil {
		return nil
	}
	rest := strings.TrimSpace(args)
	for {
		if strings.EqualFold(rest, helpWord) {
			return &Resolution{Node: node, Help: true}
		}
		if rest == "" {
			break
		}
		token, residual := SplitArgs(rest)
		child := node.child(token)
		if child == nil {
			break
		}
		node, rest = child, residual
	}
	return &Resolution{Node: node, Args: rest}
}

// Find resolves a whole "name args..." query.
func (t *Tree) Find(query string) *Resolution {
	name, args := SplitArgs(strings.TrimSpace(query))
	if name == "" {
		return nil
	}
	return t.Resolve(name, args)
}

// Lookup returns the root command with the given name or alias.
func (t *Tree) Lookup(name string) (*Node, bool) {
	n, ok := t.index[strings.ToLower(name)]
	return n, ok
}

// Commands returns the root commands ordered by category, then name.
func (t *Tree) Commands() []*Node {
	out := append([]*Node(nil), t.roots...)
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := out[i].category, out[j].category
		wi, wj := categoryWeight(ci), categoryWeight(cj)
		if wi != wj {
			return wi < wj
		}
		if ni, nj := categoryName(ci), categoryName(cj); ni != nj {
			return ni < nj
		}
		return strings.ToLower(out[i].name) < strings.ToLower(out[j].name)
	})
	return out
}

func categoryWeight(c *Category) int {
	if c == nil {
		return 0
	}
	return c.Weight
}

func categoryName(c *Category) string {
	if c == nil {
		return ""
	}
	return c.Name
}

// SplitArgs splits off the first whitespace separated token. The rest is
// returned with leading whitespace removed and inner spacing kept.
func SplitArgs(s string) (string, string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
