// Package models defines the core domain models for Rollcall.
//
// # Models
//
//   - Group: a chat scope with its operator-defined settings (custom field
//     names, reply templates, reaction glyph)
//   - Member: a roster entry inside a group, carrying a free-form
//     Attributes bag and an optional expiry
//   - Day: a calendar date; a member checks in at most once per Day
//   - AutoReply: a keyword rule answered with a rendered template
//
// # Design Principles
//
//  1. **Schema-agnostic attributes**: custom fields are a flat string map, so
//     operators can add or rename fields without a storage migration. Field
//     names are validated against Group.CustomFields only at the RPC boundary.
//  2. **Opaque identifiers**: group and member IDs are strings; the chat
//     platform adapter converts its native IDs.
//  3. **Avoid circular references**: relationships use ID strings, not pointers.
package models
