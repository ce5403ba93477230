// Package models provides shared data models and types for qpc.
//
// This package contains the scaffold and template types that flow between
// the catalog, the template store, the provisioner and the presentation
// layer.
//
// # Scaffolds
//
// A [ScaffoldDefinition] is a named, one-shot shell command that materializes
// a starter project layout. Scaffolds are grouped into a [Category] inside the
// static catalog, or embedded into a user-authored [CustomTemplate].
//
// # Provisioning
//
// A [ProvisionRequest] is a tagged union with exactly two cases:
//
//	req := models.NewScaffoldRequest(scaffold, "/work/my-app", "React (TypeScript)")
//	req := models.NewTemplateRequest(tmpl, "/work/stack", tmpl.Name)
//
// Consumers switch on [ProvisionRequest.Kind] instead of probing fields.
package models
