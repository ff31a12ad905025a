// Package dispatch sends recipient lists and keeps the send log.
//
// Delivery is strictly sequential: lists in order, recipients in order,
// one message at a time. A failed delivery is printed and counted but never
// stops the list, and a list that cannot be sent never stops the run.
// Every accepted message is appended to the SendLog with its rendered
// plain-text body.
package dispatch
