package heap

import (
	"runtime"
	"sort"

	"github.com/joshuapare/memkit/internal/format"
)

// recordSite stores the caller skip frames above recordSite as the
// allocation site of the block at off.
func (h *Heap) recordSite(off, skip int) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return
	}
	site := Site{File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		site.Func = fn.Name()
	}
	h.sites[off] = site
	h.flagSite(off)
}

// moveSite carries a recorded site along with a relocated block.
func (h *Heap) moveSite(from, to int) {
	site, ok := h.sites[from]
	if !ok {
		return
	}
	delete(h.sites, from)
	h.sites[to] = site
	h.flagSite(to)
}

func (h *Heap) flagSite(off int) {
	data := h.data()
	meta := format.ReadU32(data, off+format.BlockMetaOffset)
	meta |= format.FlagSiteTracked << 16
	format.PutU32(data, off+format.BlockMetaOffset, meta)
}

// Sites returns every live block whose allocation site was recorded, in
// address order. Blocks allocated while debug was off are not listed.
func (h *Heap) Sites() []SiteInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.b == nil {
		return nil
	}
	out := make([]SiteInfo, 0, len(h.sites))
	for off, site := range h.sites {
		hdr := h.readHeader(off)
		out = append(out, SiteInfo{
			Ref:  makeRef(off, format.MetaGen(hdr.Meta)),
			Size: int(hdr.Used),
			Site: site,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.Offset() < out[j].Ref.Offset() })
	return out
}
