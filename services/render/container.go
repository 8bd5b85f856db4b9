package render

import (
	"html/template"
	"strings"
	"sync"
)

// Container collects the fragments of one query generation. It is append-only;
// a new query gets a new container.
type Container struct {
	mu         sync.Mutex
	generation uint64
	fragments  []Fragment
}

func NewContainer(generation uint64) *Container {
	return &Container{generation: generation, fragments: []Fragment{}}
}

func (c *Container) Generation() uint64 {
	return c.generation
}

func (c *Container) Append(fragment Fragment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments = append(c.fragments, fragment)
}

func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fragments)
}

// Fragments returns a copy in arrival order.
func (c *Container) Fragments() []Fragment {
	c.mu.Lock()
	defer c.mu.Unlock()
	fragments := make([]Fragment, len(c.fragments))
	copy(fragments, c.fragments)
	return fragments
}

func (c *Container) HTML() template.HTML {
	return ContainerHTML(c.Fragments())
}

// ContainerHTML wraps fragments in the result list element.
func ContainerHTML(fragments []Fragment) template.HTML {
	var b strings.Builder
	b.WriteString(`<section id="result-list">`)
	for _, fragment := range fragments {
		b.WriteString(string(fragment.HTML))
	}
	b.WriteString(`</section>`)
	return template.HTML(b.String())
}
