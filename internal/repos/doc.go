// Package repos turns the repos section of the effective document into checkout paths,
// enabled layer directories and patches in apply order.
package repos
