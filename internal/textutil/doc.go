// Package textutil normalizes names scraped from stash boxes.
//
// Different boxes spell the same performer or studio with different case and
// punctuation. NameKey folds those variants together so metadata copying can
// reuse an entity created earlier in the same run.
package textutil
