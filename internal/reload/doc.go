// Package reload notifies development clients that output changed.
//
// Messages carry a Kind: "reload" asks for a full page reload, "css" for a
// stylesheet refresh and "error" reports a failed rebuild. SSEHub and WSHub
// serve browsers, NATSNotifier forwards messages to other processes and Multi
// fans out to several of them.
package reload
