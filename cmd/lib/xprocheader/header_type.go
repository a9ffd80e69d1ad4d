package xprocheader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

// headerType is the value of decode's --type flag, restricted to the keys of
// decoders.
type headerType struct {
	decoders map[string]decoder
	name     string
}

var _ pflag.Value = (*headerType)(nil)

func (h *headerType) String() string { return h.name }

func (h *headerType) Type() string { return "type" }

func (h *headerType) Set(v string) error {
	if _, ok := h.decoders[v]; !ok {
		return fmt.Errorf("unknown header type %q, want one of %s", v, h.names())
	}
	h.name = v
	return nil
}

// names lists the accepted values in sorted order.
func (h *headerType) names() string {
	names := make([]string, 0, len(h.decoders))
	for name := range h.decoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func (h *headerType) decoder() decoder {
	return h.decoders[h.name]
}
