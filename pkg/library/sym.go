package library

import (
	"squiggle/interpreter-go/pkg/runtime"
)

// registerSym adds the Sym namespace: constructors that only accept
// numbers and always return a symbolic distribution.
func registerSym(r *runtime.Registry) {
	s := namespace{r: r, ns: "Sym"}
	for _, m := range symbolicMakers {
		s.add(m.name, m.exact())
	}
	s.add("to", symbolicMaker{name: "to", params: 2, make: credibleInterval}.exact())
}
