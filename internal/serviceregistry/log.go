package serviceregistry

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "serviceregistry")
