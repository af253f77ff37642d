// Package http provides HTTP handlers and middleware for the scheduling API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}.
//     Response: {"token","expires_at","user"} with the token also surfaced via
//     the `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted
//     from the Authorization header or session cookie. Returns 204 and clears
//     the cookie.
//   - GET /events, POST /events, GET/PUT/DELETE /events/{id}: calendar event
//     endpoints exchanging the `eventDTO` payload defined in event_handler.go.
//     Creation and interval updates pass a fresh conflict check; a blocked
//     interval returns 409 with error_code SCHEDULE_CONFLICT.
//   - GET /events/lanes: the resource calendar projection. Crew bookings stay
//     singular in storage; secondary participants appear as clone rows.
//   - POST /events/{id}/reschedule: one transition of the drag/resize state
//     machine. The response reports committed, conflict_prompt (with a
//     next_slot offer), or reverted.
//   - POST /availability/suggest: enumerates open slots per employee for a
//     duration and window. weekends_only=true filters to weekend slots and
//     fails with SCHEDULE_WEEKEND_UNSUPPORTED when the company does not offer
//     weekend work.
//   - GET /workorders/backlog, POST /workorders/{id}/assign: dispatcher
//     endpoints for unscheduled work orders and earliest-slot smart assign.
//   - POST /events/{id}/recurrences, DELETE /recurrences/{id}: recurring
//     series management. Attaching a rule materializes the first batch of
//     occurrences eagerly.
//   - GET /employees, POST /employees: employee directory endpoints.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
