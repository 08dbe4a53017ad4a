// Package secret resolves credentials written into contactsctl configuration.
//
// A configured value goes through two steps:
//   - ${VAR} references are expanded strictly (see ExpandEnvStrict); $$ is a
//     literal dollar.
//   - secretref:<provider>:<ref> references are replaced by the value the named
//     Provider returns, either as the whole value or inline
//     ("Bearer secretref:env:CONTACTS_TOKEN").
//
// Two providers are built in: "env" reads an environment variable and "file"
// reads a file, trimming surrounding whitespace.
package secret
