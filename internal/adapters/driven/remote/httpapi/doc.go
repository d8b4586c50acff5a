// Package httpapi pushes queued mutations to the SafeWork Pro HTTP API.
//
// Each (queue, operation) pair maps to one verb and path:
//
//	sessions    create              POST   /lmra-sessions
//	sessions    update              PATCH  /lmra-sessions/{id}
//	sessions    complete            POST   /lmra-sessions/{id}/complete
//	entities    create              POST   /projects
//	entities    update              PATCH  /projects/{id}
//	entities    delete              DELETE /projects/{id}
//	entities    add_member          POST   /projects/{id}/members
//	entities    remove_member       DELETE /projects/{id}/members/{userId}
//	entities    update_member_role  PATCH  /projects/{id}/members/{userId}
//	attachments upload              POST   /lmra-sessions/{sessionId}/photos
//
// Every request carries an Idempotency-Key header set to the item key so the
// server can drop duplicates from at-least-once delivery.
package httpapi
