// Package service implements the course operations used by the HTTP
// handlers and the command line.
//
// CourseService works only through the provider gateway, so every change
// it makes is validated there and reaches subscribers as a notification.
// It adds the rules the screens used to own: an untouched new course is not
// saved, a missing id is ErrNotFound, and course lists can be imported and
// exported through the codec package.
package service
