package version

import (
	"encoding/json"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

type Info struct {
	Commit string `json:"commit"`
	Time   string `json:"time"`
	Go     string `json:"go"`
}

// Read returns the vcs settings stamped into the binary at build time.
func Read() Info {
	v := Info{}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	v.Go = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.Commit = setting.Value
		case "vcs.time":
			v.Time = setting.Value
		}
	}
	return v
}

func (i Info) Fields() logrus.Fields {
	return logrus.Fields{"commit": i.Commit, "buildTime": i.Time, "go": i.Go}
}

var Version = func() string {
	b, err := json.Marshal(Read())
	if err != nil {
		logrus.Fatal(err)
	}
	return string(b)
}()
