// Package models defines the core domain models for the Marup server.
//
// Marup is a rotating-savings ("chit fund") application: users form a
// Group, contribute a fixed amount each Round, and one member per round
// receives the pooled payout. The models mirror that lifecycle:
//
//   - Group: a savings circle with a fixed contribution amount, member
//     capacity and duration in months
//   - Member: a user's participation in one group, with a has-won flag
//     that flips exactly once per cycle
//   - Round: one payout cycle; at most one round per group is open at
//     any time
//   - Contribution: one member's payment into one round (at most one
//     per member per round)
//   - Payout: the pooled amount handed to a round's winner (exactly one
//     per completed round)
//
// Supporting models (JoinRequest, Notification, Message, Payment) back
// the membership, notification, chat and checkout surfaces.
//
// Relationships are expressed with ID strings rather than pointers to
// avoid circular references. Timestamps are Unix seconds.
package models
