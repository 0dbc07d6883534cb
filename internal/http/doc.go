// Package http exposes the reservation desk over JSON.
//
// The router exposes the following endpoints:
//   - GET /healthz: liveness probe, always {"status":"ok"}.
//   - GET /me: the caller identity as {"email","isAdmin"}.
//   - GET /resources, POST /resources, DELETE /resources/{name}: the resource
//     catalog. POST takes {"name","description","kind"}; mutations require an
//     administrator and DELETE reports cascadeCount.
//   - GET /resources/{name}/members, POST /resources/{name}/members: project
//     teams. POST takes {"name","email"}.
//   - GET /reservations?date=YYYY-MM-DD, POST /reservations: slots for a day and
//     booking. POST takes {"resourceName","date","startTime","endTime","ownerName"}.
//   - POST /reservations/{id}/cancel, PUT /reservations/{id}/status,
//     DELETE /reservations/{id}: lifecycle transitions. PUT takes {"status"}.
//   - GET /tasks?project=, POST /tasks: project tasks.
//   - POST /undo: reverts the caller's latest cancel or status change.
//
// Every response body other than /healthz and /me is the structured result
// defined by package desk. The status code mirrors the result kind: 403 for
// permission_denied, 404 for not_found, 409 for conflict, already_exists,
// invalid_transition and nothing_to_undo, 422 for validation, 503 for
// backend_unavailable.
//
// The caller is identified by a bearer JWT carrying an "email" claim when a
// signing secret is configured, and by the X-Caller-Email header otherwise.
// Requests without an identity proceed anonymously.
package http
