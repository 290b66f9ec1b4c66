// Package viz renders trained ensembles and training histories.
package viz
