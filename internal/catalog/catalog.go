package catalog

import (
	"strings"

	"github.com/lthms/symtree/internal/forest"
)

const (
	referenceSeparator = ":"
	resourceSeparator  = "-v-"
)

// ObjectMeta is the Kubernetes-style metadata of a catalog object.
type ObjectMeta struct {
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Namespace   string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// ObjectRef points a catalog at the object it describes.
type ObjectRef struct {
	SiteID     string            `json:"siteId,omitempty" yaml:"siteId,omitempty"`
	Name       string            `json:"name,omitempty" yaml:"name,omitempty"`
	Group      string            `json:"group,omitempty" yaml:"group,omitempty"`
	Version    string            `json:"version,omitempty" yaml:"version,omitempty"`
	Kind       string            `json:"kind,omitempty" yaml:"kind,omitempty"`
	Namespace  string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Address    string            `json:"address,omitempty" yaml:"address,omitempty"`
	Generation string            `json:"generation,omitempty" yaml:"generation,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Spec is the catalog payload as served by the registry.
type Spec struct {
	SiteID       string            `json:"siteId,omitempty" yaml:"siteId,omitempty"`
	Type         string            `json:"type,omitempty" yaml:"type,omitempty"`
	Name         string            `json:"name,omitempty" yaml:"name,omitempty"`
	Properties   map[string]any    `json:"properties,omitempty" yaml:"properties,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ParentName   string            `json:"parentName,omitempty" yaml:"parentName,omitempty"`
	ObjectRef    ObjectRef         `json:"objectRef,omitempty" yaml:"objectRef,omitempty"`
	Generation   string            `json:"generation,omitempty" yaml:"generation,omitempty"`
	RootResource string            `json:"rootResource,omitempty" yaml:"rootResource,omitempty"`
}

// Status carries server-side properties of a catalog.
type Status struct {
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Catalog is one entry of the catalog registry.
type Catalog struct {
	ID         string     `json:"id,omitempty" yaml:"id,omitempty"`
	ObjectMeta ObjectMeta `json:"metadata" yaml:"metadata"`
	Spec       Spec       `json:"spec" yaml:"spec"`
	Status     *Status    `json:"status,omitempty" yaml:"status,omitempty"`
}

// Name returns the identity of the catalog: its spec name, or the object
// name when spec.name is empty.
func (c Catalog) Name() string {
	if c.Spec.Name != "" {
		return c.Spec.Name
	}
	return c.ObjectMeta.Name
}

// Parent returns the parent reference converted to an object name.
func (c Catalog) Parent() string {
	return ConvertReferenceToObjectName(c.Spec.ParentName)
}

// Key is a forest.KeyFunc for catalogs.
func Key(c Catalog) (string, string) {
	return c.Name(), c.Parent()
}

// BuildForest arranges catalogs by parent name.
func BuildForest(cats []Catalog, opts ...forest.Option) (*forest.Forest[Catalog], error) {
	return forest.Build(cats, Key, opts...)
}

// FilterByType keeps the catalogs of the given spec type. An empty type
// keeps everything.
func FilterByType(cats []Catalog, typ string) []Catalog {
	if typ == "" {
		return cats
	}
	var out []Catalog
	for _, c := range cats {
		if c.Spec.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// Kind classifies a catalog for display.
type Kind string

const (
	KindRoot    Kind = "root"
	KindArc     Kind = "arc"
	KindADR     Kind = "adr"
	KindIoTHub  Kind = "iot-hub"
	KindSite    Kind = "site"
	KindGeneric Kind = ""
)

// KindOf derives the display kind: parentless catalogs are roots, the rest
// are classified by the kind of the object they reference.
func KindOf(c Catalog) Kind {
	if c.Spec.ParentName == "" {
		return KindRoot
	}
	switch k := Kind(c.Spec.ObjectRef.Kind); k {
	case KindArc, KindADR, KindIoTHub, KindSite:
		return k
	}
	return KindGeneric
}

// DisplayName prefers the "name" property over the identity.
func DisplayName(c Catalog) string {
	if v, ok := c.Spec.Properties["name"].(string); ok && v != "" {
		return v
	}
	return c.Name()
}

// ConvertReferenceToObjectName turns "name:version" into "name-v-version".
func ConvertReferenceToObjectName(name string) string {
	return strings.ReplaceAll(name, referenceSeparator, resourceSeparator)
}

// ConvertObjectNameToReference turns "name-v-version" into "name:version",
// splitting on the last separator.
func ConvertObjectNameToReference(name string) string {
	i := strings.LastIndex(name, resourceSeparator)
	if i == -1 {
		return name
	}
	return name[:i] + referenceSeparator + name[i+len(resourceSeparator):]
}
