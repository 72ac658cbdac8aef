package proptest

import (
	"vinsly/internal/backend/backendtest"
	"vinsly/internal/resource"
	"vinsly/internal/scan"

	"pgregory.net/rapid"
)

var (
	nameGen    = rapid.StringMatching(`[a-z][a-z0-9-]{0,8}`)
	contentGen = rapid.StringMatching(`[a-zA-Z ]{0,20}`)

	projectRoots = []string{"/work/alpha", "/work/beta", "/work/gamma"}
	fileKinds    = []resource.Kind{resource.KindAgent, resource.KindCommand}
)

// rawsGen lists agents under root with distinct names. An empty root is the
// global scope.
func rawsGen(root string) *rapid.Generator[[]resource.Raw] {
	return rapid.Custom(func(t *rapid.T) []resource.Raw {
		names := rapid.SliceOfNDistinct(nameGen, minResources, maxResources, rapid.ID[string]).Draw(t, "names")
		raws := make([]resource.Raw, 0, len(names))
		for _, n := range names {
			raw := backendtest.Agent(root, n)
			raw.Content = contentGen.Draw(t, "content")
			raws = append(raws, raw)
		}
		return raws
	})
}

func toResource(raw resource.Raw) resource.Resource {
	r, _ := backendtest.Parse(raw)
	r.Key = resource.IdentityKey(r)
	return r
}

func resourcesGen(root string) *rapid.Generator[[]resource.Resource] {
	return rapid.Custom(func(t *rapid.T) []resource.Resource {
		raws := rawsGen(root).Draw(t, "raws")
		out := make([]resource.Resource, 0, len(raws))
		for _, raw := range raws {
			r := toResource(raw)
			r.Favorite = rapid.Bool().Draw(t, "favorite")
			out = append(out, r)
		}
		return out
	})
}

// heldGen is a collection spanning the global scope and every project root.
func heldGen() *rapid.Generator[[]resource.Resource] {
	return rapid.Custom(func(t *rapid.T) []resource.Resource {
		out := resourcesGen("").Draw(t, "global")
		for _, root := range projectRoots {
			out = append(out, resourcesGen(root).Draw(t, root)...)
		}
		return out
	})
}

func planGen() *rapid.Generator[scan.Plan] {
	return rapid.Custom(func(t *rapid.T) scan.Plan {
		plan := scan.Plan{
			IncludeGlobal: rapid.Bool().Draw(t, "includeGlobal"),
			Roots:         make(map[string]struct{}),
		}
		for _, root := range rapid.SliceOfDistinct(rapid.SampledFrom(projectRoots), rapid.ID[string]).Draw(t, "roots") {
			plan.Roots[root] = struct{}{}
		}
		return plan
	})
}

// freshGen lists what a scan under plan could return: resources from covered
// locations only.
func freshGen(plan scan.Plan) *rapid.Generator[[]resource.Resource] {
	return rapid.Custom(func(t *rapid.T) []resource.Resource {
		var out []resource.Resource
		if plan.IncludeGlobal {
			out = append(out, resourcesGen("").Draw(t, "freshGlobal")...)
		}
		for _, root := range projectRoots {
			if _, ok := plan.Roots[root]; ok {
				out = append(out, resourcesGen(root).Draw(t, "fresh "+root)...)
			}
		}
		for i := range out {
			out[i].Favorite = false
		}
		return out
	})
}

func requestGen() *rapid.Generator[scan.Request] {
	return rapid.Custom(func(t *rapid.T) scan.Request {
		return scan.Request{
			IncludeGlobal: rapid.Bool().Draw(t, "includeGlobal"),
			ProjectPaths:  rapid.SliceOfDistinct(rapid.SampledFrom(projectRoots), rapid.ID[string]).Draw(t, "projects"),
		}
	})
}

func draftGen(root string) *rapid.Generator[resource.Draft] {
	return rapid.Custom(func(t *rapid.T) resource.Draft {
		d := resource.Draft{
			Kind:    rapid.SampledFrom(fileKinds).Draw(t, "kind"),
			Scope:   resource.ScopeGlobal,
			Name:    nameGen.Draw(t, "name"),
			Content: contentGen.Draw(t, "content"),
		}
		if root != "" {
			d.Scope = resource.ScopeProject
			d.ProjectPath = root
		}
		return d
	})
}

func malformedYAMLGen() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.Just("{{{{"),
		rapid.Just("- - - -"),
		rapid.Just(":::"),
		rapid.Just("[\n["),
		rapid.Just("key: [unclosed"),
		rapid.Just("version: \"unmatched quote"),
		rapid.Just("version: 99\nentries: {}"),
		rapid.Just("entries:\n  collection: [1, 2"),
		rapid.StringMatching(`[^a-zA-Z0-9\s]{10,50}`),
	)
}
