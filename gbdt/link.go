package gbdt

import (
	"strings"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// Link maps raw additive margins to the output space of a task.
type Link int

const (
	// LinkIdentity returns margins unchanged (regression).
	LinkIdentity Link = iota
	// LinkLogistic maps a single margin to a probability with the sigmoid.
	LinkLogistic
	// LinkSoftmax maps one margin per class to class probabilities.
	LinkSoftmax
)

func (l Link) String() string {
	switch l {
	case LinkIdentity:
		return "identity"
	case LinkLogistic:
		return "logistic"
	case LinkSoftmax:
		return "softmax"
	default:
		return "unknown"
	}
}

// ParseLink parses a link name as written by String.
func ParseLink(s string) (Link, error) {
	switch strings.ToLower(s) {
	case "identity":
		return LinkIdentity, nil
	case "logistic":
		return LinkLogistic, nil
	case "softmax":
		return LinkSoftmax, nil
	}
	return LinkIdentity, errors.NewValueError("ParseLink", "unknown link "+s)
}

// LinkFor returns the link of the named objective.
func LinkFor(objective string) Link {
	switch CanonicalObjective(objective) {
	case ObjectiveLogistic:
		return LinkLogistic
	case ObjectiveSoftprob, ObjectiveSoftmax:
		return LinkSoftmax
	}
	return LinkIdentity
}

// Apply transforms the margins of one row into dst, which must have the same length.
func (l Link) Apply(margins, dst []float64) {
	switch l {
	case LinkLogistic:
		for i, m := range margins {
			dst[i] = sigmoid(m)
		}
	case LinkSoftmax:
		softmaxInto(margins, dst)
	default:
		copy(dst, margins)
	}
}
