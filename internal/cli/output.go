package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// outputFormat returns the format selected by --output, with --json taking precedence.
func outputFormat(flag string) (string, error) {
	if jsonOutput {
		return outputJSON, nil
	}
	switch flag {
	case "", outputYAML:
		return outputYAML, nil
	case outputJSON:
		return outputJSON, nil
	}
	return "", fmt.Errorf("unsupported output format %q, use json or yaml", flag)
}

// printValue prints data in the given format.
func printValue(format string, data any) {
	if format == outputJSON {
		printJSON(data)
		return
	}
	printYAML(data)
}

// printYAML prints the given value as YAML to stdout
func printYAML(data any) {
	out, err := yaml.Marshal(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(out))
}

// bodyAsYAML renders a portal response body as YAML, or returns it unchanged
// when it is not JSON.
func bodyAsYAML(body string) string {
	if body == "" {
		return ""
	}
	out, err := sigsyaml.JSONToYAML([]byte(body))
	if err != nil {
		return body
	}
	return string(out)
}
