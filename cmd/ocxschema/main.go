// Command ocxschema inspects OCX XML schemas.
//
// It parses a schema with its imports and lists or inspects the global
// declarations, exports them to SQLite, or serves them over HTTP and
// MCP:
//
//	ocxschema summary --xsd OCX_Schema.xsd
//	ocxschema inspect ocx:Vessel --children
//	ocxschema serve --xsd https://3docx.org/fileadmin//ocx_schema//V300//OCX_Schema.xsd
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
