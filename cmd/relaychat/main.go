////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package main

import "gitlab.com/relaychat/client/cmd"

func main() {
	cmd.Execute()
}
