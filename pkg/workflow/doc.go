// Package workflow implements the copywriting steps a chat walks through:
// brief, write, pick, revise and deliver.
//
// Every operation takes the chat ID and returns the reply text for that
// chat. Operations whose precondition is not met return a
// *PreconditionError carrying the guidance reply and never call a model.
// ReplyFor maps any returned error to the text a transport should send.
package workflow
