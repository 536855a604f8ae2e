// Package errors provides the classified error primitives shared by the build pipeline.
//
// Every failure that crosses a package boundary is a ClassifiedError carrying a category
// that decides how far it propagates:
//
//   - CategoryParse: a single content document is malformed; the document is dropped.
//   - CategoryConfig: unknown filter or controller, bad permalink, missing configuration.
//   - CategoryRender: template failure; aborts the build before anything is published.
//   - CategoryPlugin: an enabled controller failed; aborts the build.
//   - CategoryFileSystem: staging and reconciliation I/O.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryRender, "template failed").
//		WithContext("template", "blog/permapage.tmpl").
//		Build()
package errors
