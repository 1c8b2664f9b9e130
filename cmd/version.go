package cmd

import (
	"fmt"
	"io"
	"runtime"

	"grimm.is/netfix/internal/brand"
)

// RunVersion prints the version banner.
func RunVersion(out io.Writer) {
	fmt.Fprintf(out, "%s %s\n", brand.Name, brand.Version)
	fmt.Fprintf(out, "%s\n", brand.Description)
	fmt.Fprintf(out, "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
