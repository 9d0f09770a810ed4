// Package services implements the driving port interfaces.
//
// RetrievalService, FAQService and TenantService share the per-tenant
// index and query caches; every write that changes a tenant's FAQ set
// invalidates both before returning. DeliveryService gates all answer
// streams through one semaphore. AskService ties retrieval and delivery
// together for a single question.
package services
