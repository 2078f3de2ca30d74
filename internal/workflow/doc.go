// Package workflow runs the scenekeeper batch jobs against a catalog.
//
// A Runner owns the catalog client, the retry policy, the scrape orchestrator
// and the notifier. Each job lists its scenes page by page, hands them to the
// pure engines in dedupe and scrape, and turns their decisions into catalog
// mutations. Every mutation goes through Runner.apply, which checks the
// dry-run flag at call time and logs the exact action it would take instead
// of calling the catalog.
//
// Listing failures abort a job. Failures on a single scene are logged with
// WarnWithContext, counted in the Report, and the job moves on to the next
// scene.
package workflow
