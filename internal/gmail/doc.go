// Package gmail builds MIME messages and sends them through the Gmail API.
//
// BuildMessage renders one recipient's message with go-mail: a text/plain
// part, optionally followed by an HTML alternative, both base64 encoded in
// UTF-8. Client.Send posts the URL-safe base64 form to users.messages.send
// for the authorized user and returns the new message id.
//
// Example usage:
//
//	env, err := gmail.BuildMessage("", "alice@example.com", "Hello", "Hi Alice", "")
//	if err != nil {
//	    return err
//	}
//	client, err := gmail.NewClient(ctx, tokenSource)
//	if err != nil {
//	    return err
//	}
//	id, err := client.Send(ctx, env.Raw)
package gmail
