package output

import (
	"encoding/json"

	"github.com/jsonschema-engine/interrogator/jsonpointer"
)

// Translator formats an error message for a given language/locale context,
// satisfying the translation hook the spec requires for Node errors.
// Implementations that don't localize can use Identity.
type Translator func(langTag, message string) string

// Identity is a Translator that returns message unchanged, regardless of langTag.
func Identity(_ string, message string) string {
	return message
}

// Document is a fully-evaluated output tree plus the Structure it should be
// serialized as.
type Document struct {
	Structure  Structure
	Root       *Node
	Translator Translator
	LangTag    string
}

// New returns a Document wrapping root for serialization as structure.
func New(structure Structure, root *Node) *Document {
	return &Document{Structure: structure, Root: root, Translator: Identity}
}

func (d *Document) translate(msg string) string {
	if d.Translator == nil {
		return msg
	}
	return d.Translator(d.LangTag, msg)
}

// wireNode is the JSON wire shape shared by Basic/Detailed/Verbose nodes.
type wireNode struct {
	Valid                   bool              `json:"valid"`
	KeywordLocation         string            `json:"keywordLocation"`
	AbsoluteKeywordLocation string            `json:"absoluteKeywordLocation,omitempty"`
	InstanceLocation        string            `json:"instanceLocation"`
	Error                   string            `json:"error,omitempty"`
	Errors                  []wireNode        `json:"errors,omitempty"`
	Annotation              any               `json:"annotation,omitempty"`
	Annotations             []wireNode        `json:"annotations,omitempty"`
}

func nodeToWire(n *Node, translate func(string) string, childField bool) wireNode {
	w := wireNode{
		Valid:            n.Valid,
		KeywordLocation:  string(n.KeywordLocation),
		InstanceLocation: string(n.InstanceLocation),
	}
	if n.AbsoluteKeywordLocation != nil {
		w.AbsoluteKeywordLocation = n.AbsoluteKeywordLocation.String()
	}
	if n.HasError {
		w.Error = translate(n.Error)
	}
	if n.HasAnnotation {
		w.Annotation = n.Annotation
	}
	if childField && len(n.Children) > 0 {
		var errs, anns []wireNode
		for _, c := range n.Children {
			if c.Valid {
				anns = append(anns, nodeToWire(c, translate, true))
			} else {
				errs = append(errs, nodeToWire(c, translate, true))
			}
		}
		w.Errors = errs
		w.Annotations = anns
	}
	return w
}

func wireToNode(w wireNode) *Node {
	n := &Node{
		Valid:            w.Valid,
		InstanceLocation: jsonpointer.Pointer(w.InstanceLocation),
		KeywordLocation:  jsonpointer.Pointer(w.KeywordLocation),
	}
	if w.Error != "" {
		n.HasError = true
		n.Error = w.Error
	}
	if w.Annotation != nil {
		n.HasAnnotation = true
		n.Annotation = w.Annotation
	}
	for _, c := range w.Errors {
		n.Children = append(n.Children, wireToNode(c))
	}
	for _, c := range w.Annotations {
		n.Children = append(n.Children, wireToNode(c))
	}
	return n
}

// MarshalJSON serializes d per the JSON Schema 2020-12 output contract for
// its configured Structure.
func (d *Document) MarshalJSON() ([]byte, error) {
	switch d.Structure {
	case Flag:
		return json.Marshal(struct {
			Valid bool `json:"valid"`
		}{Valid: d.Root != nil && d.Root.Valid})
	case Basic:
		flat := d.Root.Flatten()
		var errs, anns []wireNode
		for _, n := range flat {
			w := nodeToWire(n, d.translate, false)
			if n.Valid {
				if n.HasAnnotation {
					anns = append(anns, w)
				}
			} else {
				if n.HasError {
					errs = append(errs, w)
				}
			}
		}
		out := struct {
			Valid       bool       `json:"valid"`
			Errors      []wireNode `json:"errors,omitempty"`
			Annotations []wireNode `json:"annotations,omitempty"`
		}{Valid: d.Root.Valid, Errors: errs, Annotations: anns}
		return json.Marshal(out)
	case Detailed:
		pruned := d.Root.Prune()
		if pruned == nil {
			pruned = d.Root
		}
		return json.Marshal(nodeToWire(pruned, d.translate, true))
	case Verbose:
		return json.Marshal(nodeToWire(d.Root, d.translate, true))
	default:
		return json.Marshal(nodeToWire(d.Root, d.translate, true))
	}
}

// UnmarshalJSON parses a serialized output document, inferring its
// Structure from the JSON shape present (a bare {"valid":bool} is Flag; a
// top-level errors/annotations array is Basic; a nested error/annotation
// tree is Detailed/Verbose — both deserialize to the same Node tree shape
// since Detailed is a lossy projection of Verbose).
func (d *Document) UnmarshalJSON(data []byte) error {
	var probe struct {
		Valid       bool       `json:"valid"`
		Errors      []wireNode `json:"errors"`
		Annotations []wireNode `json:"annotations"`
		Error       *string    `json:"error"`
		Annotation  any        `json:"annotation"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	switch {
	case probe.Error == nil && probe.Annotation == nil && len(probe.Errors) == 0 && len(probe.Annotations) == 0:
		d.Structure = Flag
		d.Root = &Node{Valid: probe.Valid}
		return nil
	case probe.Error == nil && probe.Annotation == nil:
		d.Structure = Basic
		root := &Node{Valid: probe.Valid}
		for _, e := range probe.Errors {
			root.Children = append(root.Children, wireToNode(e))
		}
		for _, a := range probe.Annotations {
			root.Children = append(root.Children, wireToNode(a))
		}
		d.Root = root
		return nil
	default:
		var w wireNode
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		d.Structure = Verbose
		d.Root = wireToNode(w)
		return nil
	}
}
