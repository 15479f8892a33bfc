// Package scripting builds dynamic SQL templates into immutable artifacts
// and renders them into SQL text plus ordered bind parameters.
package scripting

// Node is one element of a built template. The set of implementations is
// closed; nodes are never mutated after Build returns.
type Node interface {
	sqlNode()
}

// StaticText is literal SQL text.
type StaticText struct {
	Text string
}

// DynamicText is SQL text containing ${} placeholders substituted from the
// scope chain at render time.
type DynamicText struct {
	Text string
}

// If renders Body when Test is truthy.
type If struct {
	Test string
	Body Node
}

// When is one branch of a Choose.
type When struct {
	Test string
	Body Node
}

// Choose renders the first matching When, else Otherwise when set.
type Choose struct {
	Whens     []When
	Otherwise Node
}

// Trim renders Body and strips the first matching override from each end
// before adding Prefix and Suffix. An empty body renders nothing at all.
type Trim struct {
	Body            Node
	Prefix          string
	Suffix          string
	PrefixOverrides []string
	SuffixOverrides []string
}

// ForEach renders Body once per element of Collection.
type ForEach struct {
	Collection string
	Item       string
	Index      string
	Open       string
	Close      string
	Separator  string
	// Nullable renders nothing instead of failing when Collection is nil.
	Nullable bool
	Body     Node
}

// Bind evaluates Expr and makes the result visible as Name.
type Bind struct {
	Name string
	Expr string
}

// Mixed renders its children in order.
type Mixed struct {
	Children []Node
}

func (*StaticText) sqlNode()  {}
func (*DynamicText) sqlNode() {}
func (*If) sqlNode()          {}
func (*Choose) sqlNode()      {}
func (*Trim) sqlNode()        {}
func (*ForEach) sqlNode()     {}
func (*Bind) sqlNode()        {}
func (*Mixed) sqlNode()       {}

var whereOverrides = []string{
	"AND ", "OR ", "AND\n", "OR\n", "AND\r", "OR\r", "AND\t", "OR\t",
	"and ", "or ", "and\n", "or\n", "and\r", "or\r", "and\t", "or\t",
}

// NewWhere returns the WHERE specialization of Trim.
func NewWhere(body Node) *Trim {
	return &Trim{Body: body, Prefix: "WHERE", PrefixOverrides: whereOverrides}
}

// NewSet returns the SET specialization of Trim.
func NewSet(body Node) *Trim {
	return &Trim{Body: body, Prefix: "SET", PrefixOverrides: []string{","}, SuffixOverrides: []string{","}}
}
